package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/petermazzocco/beauty-advisor/internal/analysis"
	"github.com/petermazzocco/beauty-advisor/internal/apperr"
	"github.com/petermazzocco/beauty-advisor/internal/auth"
	"github.com/petermazzocco/beauty-advisor/internal/feedback"
	"github.com/petermazzocco/beauty-advisor/internal/handlers"
	"github.com/petermazzocco/beauty-advisor/internal/metrics"
	"github.com/petermazzocco/beauty-advisor/internal/photos"
	"github.com/petermazzocco/beauty-advisor/internal/recommendations"
	"github.com/petermazzocco/beauty-advisor/internal/respond"
	"github.com/petermazzocco/beauty-advisor/internal/storage"
	"github.com/petermazzocco/beauty-advisor/internal/testutil"
	"github.com/petermazzocco/beauty-advisor/models"
)

type testServer struct {
	*httptest.Server
	db        *gorm.DB
	uploadDir string
	analyzer  *testutil.Analyzer
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db := testutil.NewDB(t)
	uploadDir := t.TempDir()
	disk, err := storage.NewDisk(uploadDir, "/uploads")
	require.NoError(t, err)

	analyzer := &testutil.Analyzer{}
	m := metrics.New("test")
	env := &handlers.Env{
		Auth:            auth.NewService(db, auth.NewTokenIssuer("test-secret", 24*time.Hour)),
		Photos:          photos.NewService(db, disk, testutil.Sniffer{}, 5<<20),
		Recommendations: recommendations.NewService(db, disk, analysis.WithObserver(analyzer, "test", m.ObserveAnalysis)),
		Feedback:        feedback.NewService(db),
		Respond:         respond.Writer{},
	}
	srv := httptest.NewServer(NewRouter(Deps{
		Env:                env,
		DB:                 db,
		Logger:             zap.NewNop(),
		Metrics:            m,
		FrontendURL:        "http://localhost:3001",
		RateLimitPerMinute: 1000,
		UploadDir:          uploadDir,
	}))
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, db: db, uploadDir: uploadDir, analyzer: analyzer}
}

func (s *testServer) do(t *testing.T, method, path, token string, body io.Reader, contentType string) (int, map[string]any, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, s.URL+path, body)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	res, err := s.Client().Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	var obj map[string]any
	_ = json.Unmarshal(raw, &obj)
	return res.StatusCode, obj, raw
}

func (s *testServer) json(t *testing.T, method, path, token string, payload any) (int, map[string]any, []byte) {
	t.Helper()
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(b)
	}
	return s.do(t, method, path, token, body, "application/json")
}

func (s *testServer) register(t *testing.T, name string) string {
	t.Helper()
	status, body, raw := s.json(t, http.MethodPost, "/api/auth/register", "", map[string]any{
		"email":     name + "@example.com",
		"full_name": strings.ToUpper(name[:1]) + name[1:],
		"age":       "28",
		"gender":    "Female",
		"username":  name,
		"password":  "password123",
	})
	require.Equal(t, http.StatusCreated, status, string(raw))
	return body["token"].(string)
}

func (s *testServer) upload(t *testing.T, token string, data []byte, contentType string) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="image"; filename="selfie.jpg"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	status, body, _ := s.do(t, http.MethodPost, "/api/images/upload", token, &buf, mw.FormDataContentType())
	return status, body
}

func (s *testServer) count(t *testing.T, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, s.db.Model(model).Count(&n).Error)
	return n
}

func idOf(t *testing.T, obj any) int {
	t.Helper()
	m, ok := obj.(map[string]any)
	require.True(t, ok, "expected an object, got %T", obj)
	return int(m["id"].(float64))
}

func TestRoot(t *testing.T) {
	s := newTestServer(t)
	status, body, _ := s.json(t, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Welcome to Beauty Advisor API", body["message"])

	status, body, _ = s.json(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["database"])
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t)
	registered := s.register(t, "sarah")

	status, body, _ := s.json(t, http.MethodPost, "/api/auth/register", "", map[string]any{
		"email": "sarah@example.com", "full_name": "Other", "age": 30, "gender": "male",
		"username": "other", "password": "x",
	})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "User with this email already exists", body["message"])

	status, wrongPw, _ := s.json(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "sarah@example.com", "password": "nope",
	})
	assert.Equal(t, http.StatusUnauthorized, status)
	status, unknown, _ := s.json(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "ghost@example.com", "password": "password123",
	})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, wrongPw, unknown)

	status, body, _ = s.json(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "sarah@example.com", "password": "password123",
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Login successful", body["message"])
	token := body["token"].(string)
	user := body["user"].(map[string]any)
	assert.NotContains(t, user, "hashed_password")
	assert.NotContains(t, user, "jwt_token")
	assert.Equal(t, float64(28), user["age"])

	status, _, _ = s.json(t, http.MethodGet, "/api/auth/profile", registered, nil)
	assert.Equal(t, http.StatusUnauthorized, status, "login replaced the registration session")

	status, body, _ = s.json(t, http.MethodGet, "/api/auth/profile", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "sarah", body["username"])
	assert.Equal(t, map[string]any{"Photo": float64(0), "Recommendation": float64(0), "Feedback": float64(0)}, body["_count"])

	status, body, _ = s.json(t, http.MethodGet, "/api/auth/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Access denied. No token provided.", body["message"])

	status, _, _ = s.json(t, http.MethodPost, "/api/auth/logout", token, nil)
	assert.Equal(t, http.StatusOK, status)
	status, _, _ = s.json(t, http.MethodGet, "/api/auth/profile", token, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestRegisterRejectsBadAge(t *testing.T) {
	s := newTestServer(t)
	status, body, _ := s.json(t, http.MethodPost, "/api/auth/register", "", map[string]any{
		"email": "a@example.com", "full_name": "A", "age": "old", "gender": "male",
		"username": "a", "password": "x",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Age must be a number", body["message"])
	assert.Zero(t, s.count(t, &models.User{}))
}

func TestUploadOverHTTP(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "sarah")

	status, _ := s.upload(t, token, testutil.JPEG(6<<20), "image/jpeg")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Zero(t, s.count(t, &models.Photo{}))
	entries, err := os.ReadDir(s.uploadDir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	status, body := s.upload(t, token, []byte("plain text"), "text/plain")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Only image files are allowed", body["message"])

	status, body = s.upload(t, token, testutil.JPEG(1<<20), "image/jpeg")
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "Image uploaded successfully", body["message"])
	photo := body["photo"].(map[string]any)
	url := photo["photo_url"].(string)
	require.True(t, strings.HasPrefix(url, "/uploads/"))
	assert.NotContains(t, photo, "StorageKey")

	assert.Equal(t, int64(1), s.count(t, &models.Photo{}))
	info, err := os.Stat(filepath.Join(s.uploadDir, strings.TrimPrefix(url, "/uploads/")))
	require.NoError(t, err)
	assert.Equal(t, int64(1<<20), info.Size())

	res, err := s.Client().Get(s.URL + url)
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestUploadsDirectoryIsNotListed(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "sarah")
	status, body := s.upload(t, token, testutil.JPEG(1024), "image/jpeg")
	require.Equal(t, http.StatusCreated, status)
	name := strings.TrimPrefix(body["photo"].(map[string]any)["photo_url"].(string), "/uploads/")
	require.NoError(t, os.Mkdir(filepath.Join(s.uploadDir, "nested"), 0o755))

	for _, path := range []string{"/uploads/", "/uploads/nested", "/uploads/nested/"} {
		t.Run(path, func(t *testing.T) {
			status, _, raw := s.do(t, http.MethodGet, path, "", nil, "")
			assert.Equal(t, http.StatusNotFound, status)
			assert.NotContains(t, string(raw), name)
		})
	}

	status, _, _ = s.do(t, http.MethodGet, "/uploads/"+name, "", nil, "")
	assert.Equal(t, http.StatusOK, status)
}

func TestPhotoOwnership(t *testing.T) {
	s := newTestServer(t)
	alice := s.register(t, "alice")
	bob := s.register(t, "bob")

	status, body := s.upload(t, alice, testutil.JPEG(1024), "image/jpeg")
	require.Equal(t, http.StatusCreated, status)
	id := idOf(t, body["photo"])
	path := fmt.Sprintf("/api/images/%d", id)

	status, body, _ = s.json(t, http.MethodGet, path, bob, nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "Access denied", body["message"])

	status, _, _ = s.json(t, http.MethodGet, path, alice, nil)
	assert.Equal(t, http.StatusOK, status)

	status, _, raw := s.json(t, http.MethodGet, "/api/images/user", bob, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[]`, string(raw))

	status, body, _ = s.json(t, http.MethodGet, "/api/images/abc", alice, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Invalid id", body["message"])

	status, body, _ = s.json(t, http.MethodGet, "/api/images/99999", alice, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Image not found", body["message"])
}

func TestRecommendationAndFeedbackFlow(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "sarah")
	s.analyzer.Result = analysis.Result{FaceShape: "Oval", SkinToneRGB: []float64{100, 80, 60}, HairTexture: "Straight"}

	status, body := s.upload(t, token, testutil.JPEG(2048), "image/jpeg")
	require.Equal(t, http.StatusCreated, status)
	photoID := idOf(t, body["photo"])

	gen := fmt.Sprintf("/api/recommendations/generate/%d", photoID)
	status, body, raw := s.json(t, http.MethodPost, gen, token, map[string]string{"event_type": "wedding"})
	require.Equal(t, http.StatusCreated, status, string(raw))
	assert.Equal(t, "Recommendation generated successfully", body["message"])
	rec := body["recommendation"].(map[string]any)
	assert.Equal(t, "wedding", rec["event_type"])
	assert.Equal(t, analysis.MakeupFor("Oval", []float64{100, 80, 60}), rec["recommended_makeup"])
	recID := idOf(t, rec)

	status, _, _ = s.json(t, http.MethodPost, gen, token, nil)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, int64(2), s.count(t, &models.Recommendation{}))

	fbPath := fmt.Sprintf("/api/feedback/%d", recID)
	status, body, _ = s.json(t, http.MethodPost, fbPath, token, map[string]any{"feedback_text": "Nice", "rating": "5"})
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "Feedback submitted successfully", body["message"])

	status, body, _ = s.json(t, http.MethodPost, fbPath, token, map[string]any{"feedback_text": "Better", "rating": 99})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Feedback updated successfully", body["message"])
	assert.Equal(t, int64(1), s.count(t, &models.Feedback{}))

	status, body, _ = s.json(t, http.MethodGet, fmt.Sprintf("/api/feedback/recommendation/%d", recID), token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Better", body["feedback_text"])
	assert.Equal(t, float64(99), body["rating"])

	status, _, raw = s.json(t, http.MethodGet, "/api/feedback/user", token, nil)
	require.Equal(t, http.StatusOK, status)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(raw, &list))
	require.Len(t, list, 1)
	assert.NotNil(t, list[0]["Recommendation"].(map[string]any)["Photo"])

	status, _, _ = s.json(t, http.MethodDelete, fmt.Sprintf("/api/images/%d", photoID), token, nil)
	assert.Equal(t, http.StatusConflict, status)

	recPath := fmt.Sprintf("/api/recommendations/%d", recID)
	status, body, _ = s.json(t, http.MethodDelete, recPath, token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Recommendation deleted successfully", body["message"])
	assert.Zero(t, s.count(t, &models.Feedback{}))

	status, body, _ = s.json(t, http.MethodGet, recPath, token, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Recommendation not found", body["message"])
}

func TestAnalyzerErrorPassesThroughStatus(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "sarah")
	status, body := s.upload(t, token, testutil.JPEG(512), "image/jpeg")
	require.Equal(t, http.StatusCreated, status)

	s.analyzer.Err = apperr.External(http.StatusUnprocessableEntity, "ML API error", map[string]any{"detail": "no face found"}, nil)
	status, body, _ = s.json(t, http.MethodPost, fmt.Sprintf("/api/recommendations/generate/%d", idOf(t, body["photo"])), token, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "ML API error", body["message"])
	assert.Equal(t, map[string]any{"detail": "no face found"}, body["error"])

	status, _, raw := s.json(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(raw), `analysis_calls_total{backend="test",outcome="external_analysis",service="test"} 1`)
}
