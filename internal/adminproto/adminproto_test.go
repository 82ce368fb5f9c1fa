package adminproto

import (
	"bytes"
	"testing"

	"github.com/cloudwego/gopkg/bufiox"
	"github.com/stretchr/testify/require"
)

func TestRequestRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := bufiox.NewDefaultWriter(&buf)

	req, err := NewRequest(OpAdd, "vg0")
	require.NoError(t, err)
	require.NoError(t, WriteRequest(w, req))

	r := bufiox.NewDefaultReader(&buf)
	got, err := ReadRequest(r)
	require.NoError(t, err)
	require.Equal(t, req, got)
}

func TestRequestRoundTripDel(t *testing.T) {
	var buf bytes.Buffer
	w := bufiox.NewDefaultWriter(&buf)

	req, err := NewRequest(OpDel, "volume-group-name")
	require.NoError(t, err)
	require.NoError(t, WriteRequest(w, req))

	r := bufiox.NewDefaultReader(&buf)
	got, err := ReadRequest(r)
	require.NoError(t, err)
	require.Equal(t, OpDel, got.Op)
	require.Equal(t, "volume-group-name", got.Name)
}

func TestNewRequestNameTooLong(t *testing.T) {
	name := make([]byte, MaxNameLength+1)
	for i := range name {
		name[i] = 'a'
	}
	_, err := NewRequest(OpAdd, string(name))
	require.ErrorIs(t, err, ErrNameTooLong)
}

func TestResponseRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := bufiox.NewDefaultWriter(&buf)
	require.NoError(t, WriteResponse(w, CodeOkay))

	r := bufiox.NewDefaultReader(&buf)
	code, err := ReadResponse(r)
	require.NoError(t, err)
	require.Equal(t, CodeOkay, code)
}

func TestResponseRoundTripFail(t *testing.T) {
	var buf bytes.Buffer
	w := bufiox.NewDefaultWriter(&buf)
	require.NoError(t, WriteResponse(w, CodeFail))

	r := bufiox.NewDefaultReader(&buf)
	code, err := ReadResponse(r)
	require.NoError(t, err)
	require.Equal(t, CodeFail, code)
}

func TestOpcodeString(t *testing.T) {
	require.Equal(t, "add", OpAdd.String())
	require.Equal(t, "del", OpDel.String())
	require.Equal(t, "unknown", Opcode(99).String())
}
