package taxlot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
)

// jsonObject builds a JSON object whose fields keep the order they were
// written in. The first encoding error is kept and returned by MarshalJSON,
// later writes are ignored.
type jsonObject struct {
	buf bytes.Buffer
	err error
}

// field writes key and the JSON encoding of value.
func (o *jsonObject) field(key string, value any) {
	if o.err != nil {
		return
	}
	k, err := json.Marshal(key)
	if err != nil {
		o.err = err
		return
	}
	v, err := json.Marshal(value)
	if err != nil {
		o.err = fmt.Errorf("encoding %s: %w", k, err)
		return
	}
	o.separate()
	o.buf.Write(k)
	o.buf.WriteByte(':')
	o.buf.Write(v)
}

// optional writes the field unless value is the zero value of its type.
func (o *jsonObject) optional(key string, value any) {
	if v := reflect.ValueOf(value); !v.IsValid() || v.IsZero() {
		return
	}
	o.field(key, value)
}

// merge writes every field of the object value encodes to.
func (o *jsonObject) merge(value any) {
	if o.err != nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		o.err = fmt.Errorf("encoding %T: %w", value, err)
		return
	}
	data = bytes.TrimSpace(data)
	if len(data) < 2 || data[0] != '{' || data[len(data)-1] != '}' {
		o.err = fmt.Errorf("cannot merge %T: not a JSON object", value)
		return
	}
	if inner := bytes.TrimSpace(data[1 : len(data)-1]); len(inner) > 0 {
		o.separate()
		o.buf.Write(inner)
	}
}

func (o *jsonObject) separate() {
	if o.buf.Len() > 0 {
		o.buf.WriteByte(',')
	}
}

// MarshalJSON returns the object written so far.
func (o *jsonObject) MarshalJSON() ([]byte, error) {
	if o.err != nil {
		return nil, o.err
	}
	out := make([]byte, 0, o.buf.Len()+2)
	out = append(out, '{')
	out = append(out, o.buf.Bytes()...)
	return append(out, '}'), nil
}
