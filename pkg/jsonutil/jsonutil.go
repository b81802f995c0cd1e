// Package jsonutil wraps github.com/go-json-experiment/json behind the
// small API surface this repo actually uses. The experiment encoder is
// noticeably faster than encoding/json on large finding sets and, more
// importantly here, matches struct fields case-sensitively, which the
// raw-record alias fields depend on.
package jsonutil

import (
	"io"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
)

// Unmarshal parses the JSON-encoded data and stores the result in v.
func Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// Marshal returns the JSON encoding of v.
func Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

// MarshalIndent returns the JSON encoding of v indented with indent.
func MarshalIndent(v any, indent string) ([]byte, error) {
	return json.Marshal(v, jsontext.WithIndent(indent))
}

// MarshalWrite streams the JSON encoding of v to w.
func MarshalWrite(w io.Writer, v any) error {
	return json.MarshalWrite(w, v)
}

// MarshalWriteIndent streams the indented JSON encoding of v to w.
func MarshalWriteIndent(w io.Writer, v any, indent string) error {
	return json.MarshalWrite(w, v, jsontext.WithIndent(indent))
}

// UnmarshalRead parses one JSON value from r into v, consuming the
// whole stream.
func UnmarshalRead(r io.Reader, v any) error {
	return json.UnmarshalRead(r, v)
}

// Valid reports whether data is a valid JSON encoding.
func Valid(data []byte) bool {
	return jsontext.Value(data).IsValid()
}

// Encoder writes newline-delimited JSON values to a stream. It matches
// the encoding/json.Encoder framing so JSONL consumers see one value
// per line.
type Encoder struct {
	w io.Writer
}

// NewEncoder returns an Encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// Encode writes the JSON encoding of v followed by a newline.
func (e *Encoder) Encode(v any) error {
	if err := json.MarshalWrite(e.w, v); err != nil {
		return err
	}
	_, err := e.w.Write([]byte{'\n'})
	return err
}
