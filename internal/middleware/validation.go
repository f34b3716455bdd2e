package middleware

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/onnwee/redpull/internal/apierr"
)

// DefaultMaxRequestBodySize applies when no limit is configured.
const DefaultMaxRequestBodySize = 64 * 1024

// LimitBody caps POST, PUT and PATCH bodies at maxBytes.
func LimitBody(maxBytes int64) func(http.Handler) http.Handler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxRequestBodySize
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// DecodeJSON decodes a JSON request body into dst. An empty body leaves dst
// untouched. Failures map onto validation API errors.
func DecodeJSON(r *http.Request, dst any) *apierr.Error {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apierr.ValidationTooLarge()
		}
		return apierr.ValidationInvalidJSON()
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil
	}
	if ct := r.Header.Get("Content-Type"); ct != "" {
		if mt, _, err := mime.ParseMediaType(ct); err != nil || mt != "application/json" {
			return apierr.ValidationInvalidValue("Content-Type", "must be application/json")
		}
	}
	dec := json.NewDecoder(strings.NewReader(string(body)))
	if err := dec.Decode(dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return apierr.ValidationInvalidValue(typeErr.Field, "has the wrong type")
		}
		return apierr.ValidationInvalidJSON()
	}
	if dec.More() {
		return apierr.ValidationInvalidJSON()
	}
	return nil
}

// SanitizeString trims whitespace, drops invalid UTF-8 and limits the result
// to maxLength bytes without splitting a rune.
func SanitizeString(input string, maxLength int) string {
	input = strings.TrimSpace(input)
	if !utf8.ValidString(input) {
		input = strings.ToValidUTF8(input, "")
	}
	if maxLength > 0 && len(input) > maxLength {
		cut := maxLength
		for cut > 0 && !utf8.RuneStart(input[cut]) {
			cut--
		}
		input = strings.TrimSpace(input[:cut])
	}
	return input
}
