package httpserver

import (
	"net/http"
	"time"
)

// New builds the portal's HTTP server. Requests are small JSON bodies
// (login, verify, rate decisions), so the timeouts are short; anything
// slower than this is a stuck client, not a legitimate request.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       time.Minute,
	}
}
