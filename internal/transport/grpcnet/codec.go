package grpcnet

import (
	"bytes"
	"encoding/gob"

	"google.golang.org/grpc/encoding"
)

// CodecName is the grpc content-subtype carrying the collective
// messages. The wire format is gob: the service has exactly two small
// message types exchanged between binaries of this module, so a
// generated IDL layer would buy nothing.
const CodecName = "gob"

type gobCodec struct{}

func (gobCodec) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (gobCodec) Unmarshal(data []byte, v any) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}

func (gobCodec) Name() string {
	return CodecName
}

func init() {
	encoding.RegisterCodec(gobCodec{})
}
