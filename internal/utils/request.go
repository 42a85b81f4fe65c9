package utils

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"ms-festbuzz/internal/apperr"
	"ms-festbuzz/internal/models"
)

// maxBodyBytes bounds request bodies read by DecodeJSON.
const maxBodyBytes = 1 << 20

// DecodeJSON reads the request body into dst. Malformed bodies
// are validation errors.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Validation("request body is required")
		}
		return apperr.Validation("invalid request body: %v", err)
	}
	return nil
}

// PageFromQuery reads ?page= and ?limit=; bad values fall back to defaults.
func PageFromQuery(r *http.Request) models.Page {
	q := r.URL.Query()
	number, _ := strconv.Atoi(q.Get("page"))
	size, _ := strconv.Atoi(q.Get("limit"))
	return models.Page{Number: number, Size: size}.Normalize()
}

// IntParam parses an integer path or query value.
func IntParam(name, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, apperr.Validation("%s must be an integer", name)
	}
	return n, nil
}
