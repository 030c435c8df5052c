package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Text is a response field that is meant to be a string but that the server
// may send as a JSON number, such as a numeric rank or item name. Numbers
// keep their literal form. null and every other JSON type are rejected.
type Text string

// UnmarshalJSON accepts either a JSON string or a JSON number.
func (t *Text) UnmarshalJSON(data []byte) error {
	s, err := decodeText(data)
	if err != nil {
		return err
	}
	*t = Text(s)
	return nil
}

func decodeText(data []byte) (string, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return "", fmt.Errorf("empty value")
	}

	switch {
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return "", err
		}
		return s, nil
	case data[0] == '-' || (data[0] >= '0' && data[0] <= '9'):
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return "", err
		}
		return string(data), nil
	default:
		return "", fmt.Errorf("want a string or number, got %s", data)
	}
}
