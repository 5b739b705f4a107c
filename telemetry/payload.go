package telemetry

import (
	"bytes"
	"math"

	"github.com/golang/protobuf/jsonpb"
	structpb "github.com/golang/protobuf/ptypes/struct"
	"github.com/juju/errors"
)

// Known payload field names.
const (
	FieldValue       = "value"
	FieldGameID      = "game_id"
	FieldGameVersion = "game_version"
)

var payloadUnmarshaler = jsonpb.Unmarshaler{AllowUnknownFields: true}

// Payload is decoded JSON object of one message.
type Payload struct {
	s *structpb.Struct
}

// DecodePayload returns NotValid error for anything but JSON object.
func DecodePayload(b []byte) (Payload, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return Payload{}, errors.NotValidf("payload empty")
	}
	s := new(structpb.Struct)
	if err := payloadUnmarshaler.Unmarshal(bytes.NewReader(b), s); err != nil {
		return Payload{}, errors.NewNotValid(err, "payload decode")
	}
	return Payload{s: s}, nil
}

func (p Payload) Field(name string) Field {
	if p.s == nil {
		return Field{}
	}
	return Field{v: p.s.GetFields()[name]}
}

// Field is optional: absent and null both report not present.
// Caller decides default.
type Field struct {
	v *structpb.Value
}

func (f Field) Present() bool {
	if f.v == nil {
		return false
	}
	_, null := f.v.GetKind().(*structpb.Value_NullValue)
	return !null
}

func (f Field) Number() (float64, bool) {
	if f.v == nil {
		return 0, false
	}
	if k, ok := f.v.GetKind().(*structpb.Value_NumberValue); ok {
		return k.NumberValue, true
	}
	return 0, false
}

func (f Field) Text() (string, bool) {
	if f.v == nil {
		return "", false
	}
	if k, ok := f.v.GetKind().(*structpb.Value_StringValue); ok {
		return k.StringValue, true
	}
	return "", false
}

// Uint32 truncates fraction. Not a number, negative, NaN or >MaxUint32 report false.
func (f Field) Uint32() (uint32, bool) {
	n, ok := f.Number()
	if !ok || math.IsNaN(n) || n < 0 || n > math.MaxUint32 {
		return 0, false
	}
	return uint32(n), true
}
