package analysis

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/petermazzocco/beauty-advisor/internal/apperr"
)

// maxResponseBytes caps how much of a model response is read.
const maxResponseBytes = 4 << 20

type predictRequest struct {
	Image       string `json:"image"`
	ContentType string `json:"content_type,omitempty"`
}

// HTTPAnalyzer posts the base64 image to a prediction endpoint.
type HTTPAnalyzer struct {
	URL     string
	Client  *http.Client
	Timeout time.Duration
	// Resizer, when set, shrinks the image before it is encoded.
	Resizer Resizer
}

func NewHTTPAnalyzer(url string, timeout time.Duration, resizer Resizer) *HTTPAnalyzer {
	return &HTTPAnalyzer{
		URL:     url,
		Client:  &http.Client{},
		Timeout: timeout,
		Resizer: resizer,
	}
}

func (h *HTTPAnalyzer) Analyze(ctx context.Context, img Image) (*Result, error) {
	ctx, cancel := withTimeout(ctx, h.Timeout)
	defer cancel()

	data := img.Data
	if h.Resizer != nil {
		resized, err := h.Resizer.Fit(data)
		if err != nil {
			return nil, apperr.Internal("Error preparing image for analysis", err)
		}
		data = resized
	}

	body, err := json.Marshal(predictRequest{
		Image:       base64.StdEncoding.EncodeToString(data),
		ContentType: img.ContentType,
	})
	if err != nil {
		return nil, apperr.Internal("Error encoding analysis request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.URL, bytes.NewReader(body))
	if err != nil {
		return nil, apperr.Internal("Error creating analysis request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := h.Client.Do(req)
	if err != nil {
		if terr := timeoutError(ctx, err); terr != nil {
			return nil, terr
		}
		return nil, apperr.External(0, "Error generating recommendation", nil, errors.Wrap(err, "call model api"))
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		if terr := timeoutError(ctx, err); terr != nil {
			return nil, terr
		}
		return nil, apperr.External(0, "Error reading model response", nil, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperr.External(resp.StatusCode, "ML API error", upstreamDetail(payload),
			errors.Errorf("model api returned %d", resp.StatusCode))
	}
	return Decode(payload)
}

// upstreamDetail returns the decoded JSON body, or the raw text when the
// body is not JSON.
func upstreamDetail(payload []byte) any {
	var v any
	if err := json.Unmarshal(payload, &v); err == nil {
		return v
	}
	return string(payload)
}
