package ui

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestServer(t *testing.T) (*Server, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.InfoLevel)
	s, err := NewServer(ServerConfig{
		Addr:   "127.0.0.1:0",
		Layout: DefaultLayout(),
		Logger: zap.New(core),
	})
	require.NoError(t, err)
	return s, logs
}

func TestServer_Index(t *testing.T) {
	s, logs := newTestServer(t)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.Contains(t, body, "<title>DynamoDB Movies Demo</title>")
	assert.Contains(t, body, "<h1>DynamoDB Movies Demo</h1>")
	assert.Contains(t, body, "<p>List movies from an Amazon DynamoDB table.</p>")

	entries := logs.FilterMessage("request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "/", fields["path"])
	assert.EqualValues(t, http.StatusOK, fields["status"])
	assert.Equal(t, rec.Header().Get(requestIDHeader), fields["request_id"])
}

func TestServer_Health(t *testing.T) {
	s, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var got map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, map[string]string{"status": "ok"}, got)
}

func TestServer_Static(t *testing.T) {
	s, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/globals.css", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/css")
	assert.Contains(t, rec.Body.String(), ".font-geist-mono")
}

func TestServer_NotFound(t *testing.T) {
	s, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/movies", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRequestID(t *testing.T) {
	s, _ := newTestServer(t)

	t.Run("generated", func(t *testing.T) {
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		_, err := ulid.ParseStrict(rec.Header().Get(requestIDHeader))
		assert.NoError(t, err)
	})

	t.Run("propagated", func(t *testing.T) {
		id := ulid.Make().String()
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.Header.Set(requestIDHeader, id)
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)
		assert.Equal(t, id, rec.Header().Get(requestIDHeader))
	})

	t.Run("malformed replaced", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.Header.Set(requestIDHeader, "not-a-ulid")
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)
		assert.NotEqual(t, "not-a-ulid", rec.Header().Get(requestIDHeader))
	})
}

func TestNewServer_RequiresAddr(t *testing.T) {
	_, err := NewServer(ServerConfig{})
	require.Error(t, err)
}

func TestServer_ServeUntilCanceled(t *testing.T) {
	var banner bytes.Buffer
	s, err := NewServer(ServerConfig{
		Addr:      "127.0.0.1:0",
		Layout:    DefaultLayout(),
		TableName: "movies",
		Banner:    &banner,
	})
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.Serve(ctx, ln)
	}()

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get("http://" + ln.Addr().String() + "/healthz")
	require.NoError(t, err)
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	client.CloseIdleConnections()

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}
	assert.Contains(t, banner.String(), "DynamoDB Movies Demo")
	assert.Contains(t, banner.String(), "Table: movies")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "movies", truncate("movies", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))

	long := "映画データベースのテーブル名がとても長い場合"
	got := truncate(long, 10)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, 10, utf8.RuneCountInString(got))
	assert.Equal(t, "映画データベー...", got)
}
