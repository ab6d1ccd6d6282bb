package basefile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/minios-linux/transunit/catalog"
)

// ParseJSON parses a JSON base file, preserving key order.
func ParseJSON(data []byte, locale string) ([]catalog.Pair, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	t, err := dec.Token()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("parsing JSON: %w", err)
	}
	root, err := decodeJSON(dec, t)
	if err != nil {
		return nil, fmt.Errorf("parsing JSON: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("parsing JSON: trailing data after document")
	}
	return flatten(root, locale)
}

// decodeJSON decodes the value starting with token t.
func decodeJSON(dec *json.Decoder, t json.Token) (*node, error) {
	switch v := t.(type) {
	case string:
		return leaf(v), nil
	case json.Delim:
		if v != '{' {
			return nil, fmt.Errorf("arrays are not supported")
		}
	default:
		return nil, fmt.Errorf("value %v is not a string", v)
	}

	obj := object()
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := kt.(string)
		if !ok {
			return nil, fmt.Errorf("expected string key, got %T", kt)
		}

		vt, err := dec.Token()
		if err != nil {
			return nil, err
		}
		child, err := decodeJSON(dec, vt)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		if err := obj.set(key, child); err != nil {
			return nil, err
		}
	}
	// Closing brace.
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return obj, nil
}
