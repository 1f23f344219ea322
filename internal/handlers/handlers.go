// Package handlers decodes API requests, calls the domain services and
// writes their JSON responses.
package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"

	"github.com/petermazzocco/beauty-advisor/internal/apperr"
	"github.com/petermazzocco/beauty-advisor/internal/auth"
	"github.com/petermazzocco/beauty-advisor/internal/feedback"
	"github.com/petermazzocco/beauty-advisor/internal/photos"
	"github.com/petermazzocco/beauty-advisor/internal/recommendations"
	"github.com/petermazzocco/beauty-advisor/internal/respond"
)

// Env carries the services every handler works with.
type Env struct {
	Auth            *auth.Service
	Photos          *photos.Service
	Recommendations *recommendations.Service
	Feedback        *feedback.Service
	Respond         respond.Writer
}

func currentUser(r *http.Request) (uint, error) {
	id, ok := auth.UserID(r.Context())
	if !ok {
		return 0, apperr.Unauthorized("Access denied. No token provided.")
	}
	return id, nil
}

// pathID reads a positive integer path parameter.
func pathID(r *http.Request, name string) (uint, error) {
	id, err := strconv.ParseUint(chi.URLParam(r, name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.Validation("Invalid id")
	}
	return uint(id), nil
}

// decodeJSON decodes the request body into v. An empty body leaves v
// untouched.
func decodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return &apperr.Error{Kind: apperr.KindValidation, Message: "Invalid request body", Err: err}
}
