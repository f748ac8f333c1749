package syntax

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	j "github.com/goccy/go-json"

	pkgerrors "github.com/tmdt-buw/plasma-sub002/pkg/errors"
)

// SampleDecoder reads a stream of JSON values. Objects are decoded to
// OrderedObject so that field order survives into the schema, and numbers
// keep their literal text.
type SampleDecoder struct {
	dec *j.Decoder
}

// NewSampleDecoder wraps r
func NewSampleDecoder(r io.Reader) *SampleDecoder {
	return &SampleDecoder{dec: j.NewDecoder(r)}
}

// Next decodes the next top level value. It returns io.EOF once the stream is
// exhausted. Each document is validated as a whole before it is walked, since
// the token reader does not check separators.
func (d *SampleDecoder) Next() (any, error) {
	var raw j.RawMessage
	if err := d.dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, pkgerrors.NewInferenceError("malformed JSON").WithCause(err)
	}
	return decodeDocument(raw)
}

func decodeDocument(raw []byte) (any, error) {
	if !j.Valid(raw) {
		return nil, pkgerrors.NewInferenceError("malformed JSON")
	}
	r := tokenReader{dec: j.NewDecoder(bytes.NewReader(raw))}
	r.dec.UseNumber()
	tok, err := r.dec.Token()
	if err != nil {
		return nil, pkgerrors.NewInferenceError("malformed JSON").WithCause(err)
	}
	return r.value(tok)
}

type tokenReader struct {
	dec *j.Decoder
}

func (d tokenReader) value(tok j.Token) (any, error) {
	switch t := tok.(type) {
	case j.Delim:
		switch t {
		case '{':
			return d.object()
		case '[':
			return d.array()
		default:
			return nil, pkgerrors.NewInferenceError(fmt.Sprintf("unexpected delimiter %q", rune(t)))
		}
	case j.Number, string, bool, nil:
		return t, nil
	case float64:
		return t, nil
	default:
		return nil, pkgerrors.NewInferenceError(fmt.Sprintf("unexpected token %T", tok))
	}
}

func (d tokenReader) object() (any, error) {
	obj := OrderedObject{}
	for d.dec.More() {
		keyTok, err := d.dec.Token()
		if err != nil {
			return nil, pkgerrors.NewInferenceError("malformed JSON object").WithCause(err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, pkgerrors.NewInferenceError(fmt.Sprintf("object key must be a string, got %T", keyTok))
		}
		tok, err := d.dec.Token()
		if err != nil {
			return nil, pkgerrors.NewInferenceError("malformed JSON object").WithCause(err)
		}
		val, err := d.value(tok)
		if err != nil {
			return nil, err
		}
		obj = append(obj, Field{Name: key, Value: val})
	}
	if _, err := d.dec.Token(); err != nil {
		return nil, pkgerrors.NewInferenceError("unterminated JSON object").WithCause(err)
	}
	return obj, nil
}

func (d tokenReader) array() (any, error) {
	arr := []any{}
	for d.dec.More() {
		tok, err := d.dec.Token()
		if err != nil {
			return nil, pkgerrors.NewInferenceError("malformed JSON array").WithCause(err)
		}
		val, err := d.value(tok)
		if err != nil {
			return nil, err
		}
		arr = append(arr, val)
	}
	if _, err := d.dec.Token(); err != nil {
		return nil, pkgerrors.NewInferenceError("unterminated JSON array").WithCause(err)
	}
	return arr, nil
}

// InferJSON infers a node from a single JSON document.
func InferJSON(data []byte) (Node, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, pkgerrors.NewInferenceError("empty JSON document")
	}
	value, err := decodeDocument(data)
	if err != nil {
		return nil, err
	}
	return Infer(value)
}
