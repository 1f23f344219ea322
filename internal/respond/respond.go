// Package respond writes JSON bodies and maps errors onto the API's
// {"message", "error"} error shape.
package respond

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/petermazzocco/beauty-advisor/internal/apperr"
	"github.com/petermazzocco/beauty-advisor/internal/logger"
)

type Writer struct {
	// Development adds internal error detail to 500 responses.
	Development bool
}

type errorBody struct {
	Message string `json:"message"`
	Error   any    `json:"error,omitempty"`
}

func (Writer) JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// Message writes {"message": msg}.
func (wr Writer) Message(w http.ResponseWriter, status int, msg string) {
	wr.JSON(w, status, map[string]string{"message": msg})
}

// Error writes err. Errors outside the apperr taxonomy are logged and
// reported as a generic 500.
func (wr Writer) Error(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())

	e, ok := apperr.As(err)
	if !ok {
		e = apperr.Internal("Something went wrong!", err)
	}

	status := e.HTTPStatus()
	body := errorBody{Message: e.Message, Error: e.Detail}

	switch {
	case e.Kind == apperr.KindExternalAnalysis:
		log.Warn("external analysis failed", zap.Int("status", status), zap.Error(err))
		if body.Error == nil && wr.Development && e.Err != nil {
			body.Error = e.Err.Error()
		}
	case status >= http.StatusInternalServerError:
		log.Error("request failed", zap.Error(err))
		if wr.Development {
			body.Error = err.Error()
		}
	default:
		log.Debug("request rejected", zap.String("kind", e.Kind.String()), zap.String("message", e.Message))
	}

	wr.JSON(w, status, body)
}
