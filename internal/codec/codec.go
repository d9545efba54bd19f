// Copyright 2025 Takhin Data, Inc.

// Package codec provides the pluggable serialization boundary between typed
// application values and the opaque []byte the tiered storage engine and
// cache persist. Components never assume a wire format; they call through a
// Codec the caller supplies at construction time.
package codec

import "encoding/json"

// Codec converts between an arbitrary Go value and its wire representation.
type Codec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, out any) error
}

// JSON is the default Codec, backed by encoding/json.
type JSON struct{}

func NewJSON() JSON { return JSON{} }

func (JSON) Encode(v any) ([]byte, error) { return json.Marshal(v) }

func (JSON) Decode(data []byte, out any) error { return json.Unmarshal(data, out) }

// Raw is a passthrough Codec for values that are already []byte.
type Raw struct{}

func NewRaw() Raw { return Raw{} }

func (Raw) Encode(v any) ([]byte, error) {
	if b, ok := v.([]byte); ok {
		return b, nil
	}
	return nil, errRawNotBytes
}

func (Raw) Decode(data []byte, out any) error {
	p, ok := out.(*[]byte)
	if !ok {
		return errRawNotBytes
	}
	*p = append((*p)[:0], data...)
	return nil
}

var errRawNotBytes = rawError("codec: Raw only accepts/produces []byte values")

type rawError string

func (e rawError) Error() string { return string(e) }
