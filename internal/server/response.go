package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/erazemk/msds/internal/model"
)

// maxBodySize bounds request bodies.
const maxBodySize = 64 << 10

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("encoding response", "error", err)
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{model.FieldError: message})
}

// reject writes a well-formed failure answer: HTTP 200 with the endpoint's
// success flag false and a reason.
func reject(w http.ResponseWriter, ep model.Endpoint, message string) {
	flag := ep.SuccessField()
	if flag == "" {
		flag = model.FieldSuccess
	}
	jsonResponse(w, http.StatusOK, map[string]any{
		flag:               false,
		model.FieldMessage: message,
	})
}

// payload is a decoded request body.
type payload map[string]string

func (p payload) get(name string) string {
	return strings.TrimSpace(p[name])
}

// decodePayload decodes a flat JSON object. Values must be strings or
// numbers; numbers keep their literal text.
func decodePayload(r *http.Request) (payload, error) {
	defer r.Body.Close()

	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}
	if len(data) > maxBodySize {
		return nil, fmt.Errorf("body exceeds %d bytes", maxBodySize)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decoding body: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("body must be a JSON object")
	}

	p := make(payload, len(raw))
	for k, v := range raw {
		v = bytes.TrimSpace(v)
		if string(v) == "null" {
			continue
		}
		if len(v) > 0 && v[0] == '"' {
			var s string
			if err := json.Unmarshal(v, &s); err != nil {
				return nil, fmt.Errorf("field %s: %w", k, err)
			}
			p[k] = s
			continue
		}
		var n json.Number
		if err := json.Unmarshal(v, &n); err != nil {
			return nil, fmt.Errorf("field %s must be a string or number", k)
		}
		p[k] = n.String()
	}
	return p, nil
}
