package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprint(w, "response body")
	}))
	defer server.Close()

	payload, _ := json.Marshal(map[string]string{"url": server.URL})
	out, err := NewFetchURLTool().Execute(context.Background(), payload, testMeta(t.TempDir()))
	require.NoError(t, err)
	assert.Contains(t, out, "HTTP 200 text/plain")
	assert.Contains(t, out, "response body")
}

func TestFetchURLTruncatesBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for i := 0; i < 1000; i++ {
			fmt.Fprint(w, "0123456789")
		}
	}))
	defer server.Close()

	payload, _ := json.Marshal(map[string]any{"url": server.URL, "max_bytes": 100})
	out, err := NewFetchURLTool().Execute(context.Background(), payload, testMeta(t.TempDir()))
	require.NoError(t, err)
	assert.Contains(t, out, "[truncated]")
	assert.Less(t, len(out), 300)
}

func TestFetchURLRejectsBadScheme(t *testing.T) {
	meta := testMeta(t.TempDir())
	for _, raw := range []string{"ftp://example.com/file", "file:///etc/passwd"} {
		payload, _ := json.Marshal(map[string]string{"url": raw})
		_, err := NewFetchURLTool().Execute(context.Background(), payload, meta)
		require.Error(t, err, "url %q", raw)
		assert.Contains(t, err.Error(), "unsupported scheme")
	}
}

func TestFetchURLRequiresURL(t *testing.T) {
	_, err := NewFetchURLTool().Execute(context.Background(), json.RawMessage(`{}`), testMeta(t.TempDir()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "url is required")
}
