package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// object is a decoded JSON object that remembers key order.
type object struct {
	keys []string
	vals map[string]any
}

func (o *object) get(key string) (any, bool) {
	v, ok := o.vals[key]
	return v, ok
}

// decodeOrdered decodes a JSON document; objects become *object, numbers
// stay json.Number.
func decodeOrdered(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := decodeValue(dec)
	if err != nil {
		return nil, err
	}

	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("invalid JSON: trailing data")
	}

	return v, nil
}

func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	delim, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}

	switch delim {
	case '{':
		obj := &object{vals: map[string]any{}}

		for dec.More() {
			kt, err := dec.Token()
			if err != nil {
				return nil, err
			}

			key, ok := kt.(string)
			if !ok {
				return nil, fmt.Errorf("invalid object key %v", kt)
			}

			v, err := decodeValue(dec)
			if err != nil {
				return nil, err
			}

			if _, dup := obj.vals[key]; !dup {
				obj.keys = append(obj.keys, key)
			}

			obj.vals[key] = v
		}

		if _, err := dec.Token(); err != nil {
			return nil, err
		}

		return obj, nil

	case '[':
		arr := []any{}

		for dec.More() {
			v, err := decodeValue(dec)
			if err != nil {
				return nil, err
			}

			arr = append(arr, v)
		}

		if _, err := dec.Token(); err != nil {
			return nil, err
		}

		return arr, nil

	default:
		return nil, fmt.Errorf("unexpected delimiter %q", delim)
	}
}
