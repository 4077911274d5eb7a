package backendtest

import (
	"net/http"

	"chirp/internal/gateway"
)

// inProcess dispatches HTTP requests straight into the fiber app without a
// listening socket.
type inProcess struct {
	app interface {
		Test(req *http.Request, msTimeout ...int) (*http.Response, error)
	}
}

func (t inProcess) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.app.Test(req, -1)
}

// HTTPClient returns an http.Client that routes into the fake backend.
func (s *Server) HTTPClient() *http.Client {
	return &http.Client{Transport: inProcess{app: s.app}}
}

// GatewayClient returns a real gateway wired to the fake backend.
func (s *Server) GatewayClient() *gateway.Client {
	return gateway.NewClient(gateway.ClientConfig{
		BaseURL:    "http://backend.test",
		AnonKey:    "test-anon-key",
		HTTPClient: s.HTTPClient(),
	})
}
