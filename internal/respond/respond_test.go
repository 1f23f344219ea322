package respond

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petermazzocco/beauty-advisor/internal/apperr"
)

func write(t *testing.T, wr Writer, err error) (int, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	wr.Error(rec, httptest.NewRequest(http.MethodGet, "/", nil), err)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestErrorKnownKind(t *testing.T) {
	status, body := write(t, Writer{}, apperr.Forbidden())
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, map[string]any{"message": "Access denied"}, body)
}

func TestErrorHidesInternalDetailOutsideDevelopment(t *testing.T) {
	err := errors.New("pq: connection refused")

	status, body := write(t, Writer{}, err)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "Something went wrong!", body["message"])
	assert.NotContains(t, body, "error")

	_, body = write(t, Writer{Development: true}, err)
	assert.Contains(t, body["error"], "connection refused")
}

func TestErrorPassesUpstreamDetail(t *testing.T) {
	status, body := write(t, Writer{}, apperr.External(503, "ML API error", map[string]any{"detail": "warming up"}, nil))
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "ML API error", body["message"])
	assert.Equal(t, map[string]any{"detail": "warming up"}, body["error"])
}
