package store

import (
	"encoding/gob"
	"encoding/json"
	"io"

	"google.golang.org/protobuf/proto"
	"gopkg.in/yaml.v3"
)

// Codec defines the on-disk representation of a value. A single value
// consumes exactly one stream, from start to end.
type Codec[V any] interface {
	Encode(w io.Writer, v V) error
	Decode(r io.Reader) (V, error)
}

// CodecFuncs adapts a pair of functions to Codec.
type CodecFuncs[V any] struct {
	EncodeFunc func(w io.Writer, v V) error
	DecodeFunc func(r io.Reader) (V, error)
}

func (c CodecFuncs[V]) Encode(w io.Writer, v V) error { return c.EncodeFunc(w, v) }
func (c CodecFuncs[V]) Decode(r io.Reader) (V, error) { return c.DecodeFunc(r) }

// BytesCodec stores raw bytes verbatim.
type BytesCodec struct{}

func (BytesCodec) Encode(w io.Writer, v []byte) error {
	_, err := w.Write(v)
	return err
}

func (BytesCodec) Decode(r io.Reader) ([]byte, error) {
	return io.ReadAll(r)
}

// StringCodec stores a string as its raw bytes.
type StringCodec struct{}

func (StringCodec) Encode(w io.Writer, v string) error {
	_, err := io.WriteString(w, v)
	return err
}

func (StringCodec) Decode(r io.Reader) (string, error) {
	b, err := io.ReadAll(r)
	return string(b), err
}

// JSONCodec stores values as a single JSON document.
type JSONCodec[V any] struct{}

func (JSONCodec[V]) Encode(w io.Writer, v V) error {
	return json.NewEncoder(w).Encode(v)
}

func (JSONCodec[V]) Decode(r io.Reader) (V, error) {
	var v V
	err := json.NewDecoder(r).Decode(&v)
	return v, err
}

// YAMLCodec stores values as a single YAML document.
type YAMLCodec[V any] struct{}

func (YAMLCodec[V]) Encode(w io.Writer, v V) error {
	enc := yaml.NewEncoder(w)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

func (YAMLCodec[V]) Decode(r io.Reader) (V, error) {
	var v V
	err := yaml.NewDecoder(r).Decode(&v)
	return v, err
}

// GobCodec stores values with encoding/gob. Interface-typed fields need
// gob.Register before use.
type GobCodec[V any] struct{}

func (GobCodec[V]) Encode(w io.Writer, v V) error {
	return gob.NewEncoder(w).Encode(v)
}

func (GobCodec[V]) Decode(r io.Reader) (V, error) {
	var v V
	err := gob.NewDecoder(r).Decode(&v)
	return v, err
}

// ProtoCodec stores protobuf messages in wire format. New must return an
// empty message to unmarshal into.
type ProtoCodec[M proto.Message] struct {
	New func() M
}

func (c ProtoCodec[M]) Encode(w io.Writer, m M) error {
	b, err := proto.Marshal(m)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

func (c ProtoCodec[M]) Decode(r io.Reader) (M, error) {
	m := c.New()
	b, err := io.ReadAll(r)
	if err != nil {
		return m, err
	}
	return m, proto.Unmarshal(b, m)
}
