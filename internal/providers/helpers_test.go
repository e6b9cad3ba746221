package providers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// rewriteTransport rewrites all request URLs to point at the test server.
type rewriteTransport struct {
	base    http.RoundTripper
	baseURL string
}

func (t *rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.URL.Scheme = "http"
	req.URL.Host = t.baseURL[len("http://"):]
	if t.base != nil {
		return t.base.RoundTrip(req)
	}
	return http.DefaultTransport.RoundTrip(req)
}

// redirectedClient sends every request to server regardless of its URL.
func redirectedClient(server *httptest.Server) *http.Client {
	return &http.Client{
		Transport: &rewriteTransport{
			base:    server.Client().Transport,
			baseURL: server.URL,
		},
	}
}

// fastRetry shrinks the back-off so retry tests finish quickly.
func fastRetry(t *testing.T) {
	t.Helper()
	orig := retryBase
	retryBase = time.Millisecond
	t.Cleanup(func() { retryBase = orig })
}

func respond(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}
}
