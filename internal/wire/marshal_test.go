package wire

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRequestRoundTrip(t *testing.T) {
	variants := []ProtocolVariant{ProtocolNative, ProtocolX86_32, ProtocolX86_64}

	for _, variant := range variants {
		t.Run(variant.String(), func(t *testing.T) {
			req := Request{
				Operation:   OpWrite,
				NumSegments: 2,
				ID:          0xAA,
				Sector:      42,
			}
			req.Segments[0] = Segment{GrantRef: 0x100, FirstSect: 0, LastSect: 7}
			req.Segments[1] = Segment{GrantRef: 0x101, FirstSect: 0, LastSect: 3}

			size, err := RequestSize(variant)
			require.NoError(t, err)

			buf := make([]byte, size)
			require.NoError(t, EncodeRequest(variant, &req, buf))

			got, err := DecodeRequest(variant, buf)
			require.NoError(t, err)
			require.Equal(t, req.Operation, got.Operation)
			require.Equal(t, req.NumSegments, got.NumSegments)
			require.Equal(t, req.ID, got.ID)
			require.Equal(t, req.Sector, got.Sector)
			require.Equal(t, req.Segments[0], got.Segments[0])
			require.Equal(t, req.Segments[1], got.Segments[1])
		})
	}
}

func TestResponseRoundTrip(t *testing.T) {
	variants := []ProtocolVariant{ProtocolNative, ProtocolX86_32, ProtocolX86_64}

	for _, variant := range variants {
		t.Run(variant.String(), func(t *testing.T) {
			resp := Response{ID: 0xAA, Operation: OpRead, Status: StatusOkay}

			size, err := ResponseSize(variant)
			require.NoError(t, err)

			buf := make([]byte, size)
			require.NoError(t, EncodeResponse(variant, &resp, buf))

			got, err := DecodeResponse(variant, buf)
			require.NoError(t, err)
			require.Equal(t, resp, got)
		})
	}
}

func TestUnsupportedProtocol(t *testing.T) {
	_, err := RequestSize(ProtocolVariant(99))
	require.ErrorIs(t, err, ErrUnsupportedProtocol)

	_, err = ResponseSize(ProtocolVariant(99))
	require.ErrorIs(t, err, ErrUnsupportedProtocol)
}

func TestShortBuffer(t *testing.T) {
	req := Request{Operation: OpRead, NumSegments: 1}
	err := EncodeRequest(ProtocolNative, &req, make([]byte, 4))
	require.ErrorIs(t, err, ErrShortBuffer)

	_, err = DecodeRequest(ProtocolNative, make([]byte, 4))
	require.ErrorIs(t, err, ErrShortBuffer)
}
