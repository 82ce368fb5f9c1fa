package wire

import "encoding/binary"

// EncodeRequest marshals req into buf using the layout of variant. buf must
// be at least RequestSize(variant) bytes.
func EncodeRequest(variant ProtocolVariant, req *Request, buf []byte) error {
	size, err := RequestSize(variant)
	if err != nil {
		return err
	}
	if len(buf) < size {
		return ErrShortBuffer
	}

	switch variant {
	case ProtocolNative, ProtocolX86_64:
		buf[0] = req.Operation
		buf[1] = req.NumSegments
		binary.LittleEndian.PutUint64(buf[8:16], req.ID)
		binary.LittleEndian.PutUint64(buf[16:24], req.Sector)
		encodeSegments(buf[24:], req.NumSegments, &req.Segments, segmentSizeNative)
	case ProtocolX86_32:
		buf[0] = req.Operation
		buf[1] = req.NumSegments
		binary.LittleEndian.PutUint64(buf[4:12], req.ID)
		binary.LittleEndian.PutUint64(buf[12:20], req.Sector)
		encodeSegments(buf[20:], req.NumSegments, &req.Segments, segmentSizeCompat32)
	default:
		return ErrUnsupportedProtocol
	}
	return nil
}

// DecodeRequest unmarshals a Request from buf using the layout of variant.
// All fields are copied out of buf immediately; callers must not retain buf
// and re-read it later (guards against the guest mutating ring memory
// concurrently — see the TOCTOU design note).
func DecodeRequest(variant ProtocolVariant, buf []byte) (Request, error) {
	var req Request

	size, err := RequestSize(variant)
	if err != nil {
		return req, err
	}
	if len(buf) < size {
		return req, ErrShortBuffer
	}

	switch variant {
	case ProtocolNative, ProtocolX86_64:
		req.Operation = buf[0]
		req.NumSegments = buf[1]
		req.ID = binary.LittleEndian.Uint64(buf[8:16])
		req.Sector = binary.LittleEndian.Uint64(buf[16:24])
		decodeSegments(buf[24:], req.NumSegments, &req.Segments, segmentSizeNative)
	case ProtocolX86_32:
		req.Operation = buf[0]
		req.NumSegments = buf[1]
		req.ID = binary.LittleEndian.Uint64(buf[4:12])
		req.Sector = binary.LittleEndian.Uint64(buf[12:20])
		decodeSegments(buf[20:], req.NumSegments, &req.Segments, segmentSizeCompat32)
	default:
		return req, ErrUnsupportedProtocol
	}
	return req, nil
}

// EncodeResponse marshals resp into buf using the layout of variant.
func EncodeResponse(variant ProtocolVariant, resp *Response, buf []byte) error {
	size, err := ResponseSize(variant)
	if err != nil {
		return err
	}
	if len(buf) < size {
		return ErrShortBuffer
	}

	switch variant {
	case ProtocolNative, ProtocolX86_64:
		binary.LittleEndian.PutUint64(buf[0:8], resp.ID)
		buf[8] = resp.Operation
		binary.LittleEndian.PutUint16(buf[14:16], uint16(resp.Status))
	case ProtocolX86_32:
		binary.LittleEndian.PutUint64(buf[0:8], resp.ID)
		buf[8] = resp.Operation
		binary.LittleEndian.PutUint16(buf[10:12], uint16(resp.Status))
	default:
		return ErrUnsupportedProtocol
	}
	return nil
}

// DecodeResponse unmarshals a Response from buf using the layout of variant.
func DecodeResponse(variant ProtocolVariant, buf []byte) (Response, error) {
	var resp Response

	size, err := ResponseSize(variant)
	if err != nil {
		return resp, err
	}
	if len(buf) < size {
		return resp, ErrShortBuffer
	}

	switch variant {
	case ProtocolNative, ProtocolX86_64:
		resp.ID = binary.LittleEndian.Uint64(buf[0:8])
		resp.Operation = buf[8]
		resp.Status = Status(binary.LittleEndian.Uint16(buf[14:16]))
	case ProtocolX86_32:
		resp.ID = binary.LittleEndian.Uint64(buf[0:8])
		resp.Operation = buf[8]
		resp.Status = Status(binary.LittleEndian.Uint16(buf[10:12]))
	default:
		return resp, ErrUnsupportedProtocol
	}
	return resp, nil
}

func encodeSegments(buf []byte, n uint8, segs *[MaxSegments]Segment, stride int) {
	for i := 0; i < int(n) && i < MaxSegments; i++ {
		off := i * stride
		binary.LittleEndian.PutUint32(buf[off:off+4], segs[i].GrantRef)
		buf[off+4] = segs[i].FirstSect
		buf[off+5] = segs[i].LastSect
	}
}

func decodeSegments(buf []byte, n uint8, segs *[MaxSegments]Segment, stride int) {
	for i := 0; i < int(n) && i < MaxSegments; i++ {
		off := i * stride
		segs[i].GrantRef = binary.LittleEndian.Uint32(buf[off : off+4])
		segs[i].FirstSect = buf[off+4]
		segs[i].LastSect = buf[off+5]
	}
}
