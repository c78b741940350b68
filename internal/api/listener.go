package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"
)

// Listener owns the http.Server for a Server's routes.
type Listener struct {
	addr         string
	httpServer   *http.Server
	ln           net.Listener
	readTimeout  time.Duration
	writeTimeout time.Duration
	errc         chan error
}

// NewListener prepares a listener on addr. Nothing is bound until Start.
func NewListener(addr string) *Listener {
	return &Listener{
		addr:         addr,
		readTimeout:  10 * time.Second,
		writeTimeout: 60 * time.Second,
		errc:         make(chan error, 1),
	}
}

// Start binds the socket and serves h in a goroutine. It returns once the
// socket is bound, so a bad address fails here rather than later.
func (l *Listener) Start(h http.Handler) error {
	ln, err := net.Listen("tcp", l.addr)
	if err != nil {
		return err
	}
	l.ln = ln
	l.httpServer = &http.Server{
		Handler:           h,
		ReadTimeout:       l.readTimeout,
		ReadHeaderTimeout: l.readTimeout,
		WriteTimeout:      l.writeTimeout,
	}
	go func() {
		err := l.httpServer.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		l.errc <- err
	}()
	return nil
}

// Addr is the bound address, or the configured one before Start.
func (l *Listener) Addr() string {
	if l.ln != nil {
		return l.ln.Addr().String()
	}
	return l.addr
}

// Err delivers the serve loop's terminal error; nil after a clean shutdown.
func (l *Listener) Err() <-chan error { return l.errc }

// Shutdown gracefully stops the server.
func (l *Listener) Shutdown(ctx context.Context) error {
	if l.httpServer == nil {
		return nil
	}
	return l.httpServer.Shutdown(ctx)
}
