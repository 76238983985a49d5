package router

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"DisplayAPI/internal/config"
	"DisplayAPI/internal/handler"
	"DisplayAPI/internal/logger"
	"DisplayAPI/internal/metrics"
	"DisplayAPI/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lockedBuffer is written by the server goroutine and read by the test.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type staticDB struct{}

func (staticDB) QueryRows(context.Context, string, ...any) ([]map[string]any, error) {
	return []map[string]any{{"id": int64(1), "name": "Dune"}}, nil
}

func newTestServer(t *testing.T) (*httptest.Server, *lockedBuffer) {
	t.Helper()
	buf := &lockedBuffer{}
	logger.SetOutput(buf)
	t.Cleanup(func() { logger.SetOutput(&bytes.Buffer{}) })

	m, err := model.ParseModel("book", []byte(`
table: books
columns: [id, name]
presets:
  item:
    fields: [{source: id}, {source: name}]
views:
  list: {preset: item}
`))
	require.NoError(t, err)
	reg := map[string]*model.Model{"book": m}
	require.NoError(t, model.LinkModels(reg))

	mt := metrics.New()
	api := handler.NewAPI(reg, staticDB{}, nil, mt, "en")
	srv := httptest.NewServer(New(config.CORSConfig{AllowOrigin: "*"}, api, mt))
	t.Cleanup(srv.Close)
	return srv, buf
}

func get(t *testing.T, url string, header map[string]string) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestRouter_Routes(t *testing.T) {
	srv, logs := newTestServer(t)

	resp, body := get(t, srv.URL+"/api/book/list?display=name", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.JSONEq(t, `{"data":[{"name":"Dune"}],"meta":{"display":["name"],"select_related":[],"prefetch_related":[]}}`, body)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	_, err := uuid.Parse(resp.Header.Get("X-Request-ID"))
	assert.NoError(t, err, "a request id is generated")

	resp, _ = get(t, srv.URL+"/api/book/list/schema", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = get(t, srv.URL+"/api/book/missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = get(t, srv.URL+"/metrics", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `display_api_requests_total{code="200",route="/api/:model/:view"} 1`)
	assert.Contains(t, body, `display_api_requests_total{code="404",route="/api/:model/:view"} 1`)

	assert.Contains(t, logs.String(), `"msg":"response"`)
	assert.Contains(t, logs.String(), `"status":404`)
}

func TestRouter_KeepsIncomingRequestID(t *testing.T) {
	srv, logs := newTestServer(t)

	resp, _ := get(t, srv.URL+"/api/book/list", map[string]string{"X-Request-ID": "abc-123"})
	assert.Equal(t, "abc-123", resp.Header.Get("X-Request-ID"))
	assert.Contains(t, logs.String(), `"request_id":"abc-123"`)
}
