package dispatch

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalExecuteText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	engine := NewLocalEngine()
	resp := engine.Execute(t.Context(), &Payload{
		Method: "post",
		URL:    server.URL,
		Headers: []HeaderPair{
			{Key: "Authorization", Value: "Bearer token"},
		},
		Body:    `{"name":"x"}`,
		Timeout: 5000,
	})

	require.True(t, resp.OK())
	assert.Equal(t, 201, resp.Status)
	assert.Equal(t, "Created", resp.StatusText)
	assert.Equal(t, `{"ok":true}`, resp.Body)
	assert.Empty(t, resp.BodyEncoding)
	assert.Equal(t, int64(11), resp.SizeBytes)
	assert.Equal(t, "application/json", resp.Headers["Content-Type"])
	assert.GreaterOrEqual(t, resp.DurationMs, int64(0))
}

func TestLocalExecuteBinary(t *testing.T) {
	raw := []byte{0x89, 0x50, 0x4e, 0x47, 0x00, 0x01}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(raw)
	}))
	defer server.Close()

	engine := NewLocalEngine()
	resp := engine.Execute(t.Context(), &Payload{Method: "GET", URL: server.URL})

	require.True(t, resp.OK())
	assert.Equal(t, EncodingBase64, resp.BodyEncoding)
	assert.Equal(t, base64.StdEncoding.EncodeToString(raw), resp.Body)
}

func TestLocalExecuteNetworkError(t *testing.T) {
	engine := NewLocalEngine()
	resp := engine.Execute(t.Context(), &Payload{
		Method:  "GET",
		URL:     "http://127.0.0.1:1/unreachable",
		Timeout: 1000,
	})

	assert.False(t, resp.OK())
	assert.Equal(t, 0, resp.Status)
	assert.Equal(t, "Error", resp.StatusText)
	assert.NotEmpty(t, resp.Error)
}

func TestLocalExecuteRedirects(t *testing.T) {
	var mux http.ServeMux
	server := httptest.NewServer(&mux)
	defer server.Close()

	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/final", http.StatusFound)
	})
	mux.HandleFunc("/final", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("done"))
	})

	engine := NewLocalEngine()

	followed := engine.Execute(t.Context(), &Payload{
		Method:          "GET",
		URL:             server.URL + "/start",
		FollowRedirects: true,
	})
	require.True(t, followed.OK())
	assert.Equal(t, 200, followed.Status)
	assert.Equal(t, "done", followed.Body)

	// 不跟随时返回重定向响应本身
	stopped := engine.Execute(t.Context(), &Payload{
		Method: "GET",
		URL:    server.URL + "/start",
	})
	require.True(t, stopped.OK())
	assert.Equal(t, 302, stopped.Status)
	assert.Equal(t, "/final", stopped.Headers["Location"])
}

func TestLocalExecuteMultiValueHeader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Set-Cookie", "a=1")
		w.Header().Add("Set-Cookie", "b=2")
	}))
	defer server.Close()

	engine := NewLocalEngine()
	resp := engine.Execute(t.Context(), &Payload{Method: "GET", URL: server.URL})

	require.True(t, resp.OK())
	assert.Equal(t, "a=1, b=2", resp.Headers["Set-Cookie"])
}

func TestIsBinaryContentType(t *testing.T) {
	tests := []struct {
		contentType string
		binary      bool
	}{
		{"image/png", true},
		{"IMAGE/JPEG", true},
		{"audio/mpeg", true},
		{"video/mp4", true},
		{"font/woff2", true},
		{"application/octet-stream", true},
		{"application/pdf; name=report.pdf", true},
		{"application/zip", true},
		{"application/gzip", true},
		{"application/x-protobuf", true},
		{"application/vnd.ms-excel", true},
		{"application/msword", true},
		{"application/json", false},
		{"application/json; charset=utf-8", false},
		{"text/html", false},
		{"text/plain; charset=utf-8", false},
		{"", false},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.binary, IsBinaryContentType(tc.contentType), tc.contentType)
	}
}
