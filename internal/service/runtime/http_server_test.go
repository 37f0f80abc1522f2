package runtime

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcm-ksa/nphies-gateway/internal/service/config"
	nphiesHTTP "github.com/rcm-ksa/nphies-gateway/internal/service/nphies/adapters/http"
	"github.com/rcm-ksa/nphies-gateway/internal/service/nphies/app"
	"github.com/rcm-ksa/nphies-gateway/internal/service/nphies/app/queries"
	"github.com/rcm-ksa/nphies-gateway/internal/service/nphies/ledger"
)

func newTestServer(t *testing.T, apiKey string, logs *bytes.Buffer) http.Handler {
	t.Helper()
	repo := ledger.NewMemoryRepository()
	_, err := repo.Save(context.Background(), ledger.Submission{ID: "sub-1", Kind: "Claim", Status: ledger.StatusAccepted})
	require.NoError(t, err)

	queryBus := app.NewQueryBus(
		queries.NewGetSubmissionQueryHandler(repo),
		queries.NewRejectionReportQueryHandler(repo, nil),
	)
	logger := zerolog.New(logs)
	srv, err := NewHTTPServer(
		config.Config{HTTPPort: "8081", APIKey: apiKey},
		nphiesHTTP.NewServer(nil, queryBus, "", logger),
		logger,
	)
	require.NoError(t, err)
	assert.Equal(t, ":8081", srv.Addr)
	return srv.Handler
}

func do(h http.Handler, method, path, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if key != "" {
		req.Header.Set("X-API-Key", key)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAPIKeyAuth(t *testing.T) {
	h := newTestServer(t, "secret", &bytes.Buffer{})

	assert.Equal(t, http.StatusOK, do(h, http.MethodGet, "/health", "").Code)

	unauth := do(h, http.MethodGet, "/api/v1/submissions/sub-1", "")
	assert.Equal(t, http.StatusUnauthorized, unauth.Code)
	assert.Contains(t, unauth.Header().Get("WWW-Authenticate"), "X-API-Key")

	assert.Equal(t, http.StatusUnauthorized, do(h, http.MethodGet, "/api/v1/submissions/sub-1", "wrong").Code)
	assert.Equal(t, http.StatusOK, do(h, http.MethodGet, "/api/v1/submissions/sub-1", "secret").Code)
}

func TestAPIKeyAuth_DisabledWithoutKey(t *testing.T) {
	h := newTestServer(t, "", &bytes.Buffer{})
	assert.Equal(t, http.StatusOK, do(h, http.MethodGet, "/api/v1/submissions/sub-1", "").Code)
	assert.Equal(t, http.StatusNotFound, do(h, http.MethodGet, "/api/v1/submissions/other", "").Code)
}

func TestRequestLogger(t *testing.T) {
	var logs bytes.Buffer
	h := newTestServer(t, "", &logs)

	do(h, http.MethodGet, "/health", "")

	line := logs.String()
	assert.True(t, strings.Contains(line, `"path":"/health"`), line)
	assert.Contains(t, line, `"status":200`)
	assert.Contains(t, line, `"method":"GET"`)
}
