package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yassinsws/microsoft-agent-hackathon/internal/config"
)

func TestAllowDevOrigin(t *testing.T) {
	cases := map[string]bool{
		"http://localhost:5173":                             true,
		"http://127.0.0.1:3000":                             true,
		"https://claims-ui.happyrock.azurecontainerapps.io": true,
		"http://claims-ui.happyrock.azurecontainerapps.io":  false,
		"https://azurecontainerapps.io.evil.com":            false,
		"https://example.com":                               false,
	}
	for origin, want := range cases {
		got, err := allowDevOrigin(origin)
		assert.NoError(t, err)
		assert.Equal(t, want, got, origin)
	}
}

func TestCORSFrontendOrigin(t *testing.T) {
	e := NewServer(nil, &config.Config{FrontendOrigin: "https://claims.example.com"})

	req := httptest.NewRequest(http.MethodOptions, "/health", nil)
	req.Header.Set("Origin", "https://claims.example.com")
	req.Header.Set("Access-Control-Request-Method", "GET")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, "https://claims.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/health", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "GET")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestAllowOriginFollowsCORSRule(t *testing.T) {
	allow := allowOrigin(&config.Config{FrontendOrigin: "https://app.example.com"})
	assert.True(t, allow("https://app.example.com"))
	assert.False(t, allow("https://evil.example.com"))
	assert.False(t, allow("http://localhost:5173"))

	allow = allowOrigin(&config.Config{})
	assert.True(t, allow("http://localhost:5173"))
	assert.False(t, allow("https://evil.example.com"))

	allow = allowOrigin(&config.Config{AllowAllCORS: true})
	assert.True(t, allow("https://evil.example.com"))
}

func TestStreamRejectsForeignOrigin(t *testing.T) {
	e := NewServer(nil, &config.Config{FrontendOrigin: "https://app.example.com"})
	srv := httptest.NewServer(e)
	defer srv.Close()

	header := http.Header{}
	header.Set("Origin", "https://evil.example.com")
	conn, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/api/v1/workflow/stream", header)
	if conn != nil {
		conn.Close()
	}
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
