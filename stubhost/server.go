// Copyright (c) 2026 TTBT Enterprises LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package stubhost

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"net"
	"net/http"
	"strings"
	"time"
)

//go:embed static
var staticFiles embed.FS

// Options configures the stand-in game host. Zero fields take the defaults
// of DefaultOptions.
type Options struct {
	Addr     string
	Listener net.Listener
	Debug    bool

	MaxPlayers    int
	StartingLives int
	// LobbyWait is how long a lobby with at least two players waits for
	// more before the countdown starts. A full lobby skips it.
	LobbyWait time.Duration
	// Countdown is the number of seconds counted down before the match.
	// Negative means start immediately.
	Countdown     int
	FuseTime      time.Duration
	ExplosionTime time.Duration
}

// DefaultOptions keep the lobby wait and countdown within the 35 seconds the
// match check allows for the board to appear.
func DefaultOptions() Options {
	return Options{
		Addr:          ":8000",
		MaxPlayers:    4,
		StartingLives: 3,
		LobbyWait:     10 * time.Second,
		Countdown:     10,
		FuseTime:      1500 * time.Millisecond,
		ExplosionTime: 500 * time.Millisecond,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Addr == "" {
		o.Addr = d.Addr
	}
	if o.MaxPlayers <= 0 {
		o.MaxPlayers = d.MaxPlayers
	}
	if o.StartingLives <= 0 {
		o.StartingLives = d.StartingLives
	}
	if o.LobbyWait == 0 {
		o.LobbyWait = d.LobbyWait
	}
	if o.Countdown == 0 {
		o.Countdown = d.Countdown
	}
	if o.FuseTime == 0 {
		o.FuseTime = d.FuseTime
	}
	if o.ExplosionTime == 0 {
		o.ExplosionTime = d.ExplosionTime
	}
	return o
}

// Server represents the running server instance.
type Server struct {
	httpServer *http.Server
	hub        *Hub
	listener   net.Listener
}

// URL is the base URL the server can be reached at.
func (s *Server) URL() string {
	addr := s.listener.Addr().(*net.TCPAddr)
	host := "localhost"
	if !addr.IP.IsUnspecified() && !addr.IP.IsLoopback() {
		host = addr.IP.String()
	}
	return fmt.Sprintf("http://%s", net.JoinHostPort(host, fmt.Sprint(addr.Port)))
}

// Shutdown gracefully shuts down the server and the hub.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []string
	if err := s.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Sprintf("http: %v", err))
	}
	s.hub.stop()
	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %s", strings.Join(errs, ", "))
	}
	return nil
}

// StartServer starts the stand-in host and returns once it is listening.
func StartServer(opts Options) (*Server, error) {
	opts = opts.withDefaults()
	hub, handler := NewServerHandler(opts)

	l := opts.Listener
	if l == nil {
		var err error
		if l, err = net.Listen("tcp", opts.Addr); err != nil {
			hub.stop()
			return nil, fmt.Errorf("listen %s: %w", opts.Addr, err)
		}
	}

	httpServer := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("Stand-in game host listening on %s...", l.Addr())
		if err := httpServer.Serve(l); err != nil && !errors.Is(err, net.ErrClosed) && err != http.ErrServerClosed {
			log.Printf("Server error: %v", err)
		}
	}()

	return &Server{
		httpServer: httpServer,
		hub:        hub,
		listener:   l,
	}, nil
}

// NewServerHandler creates the hub, starts it, and returns the HTTP handler
// serving the client and the websocket.
func NewServerHandler(opts Options) (*Hub, http.Handler) {
	opts = opts.withDefaults()
	hub := newHub(opts)
	go hub.run()

	static, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", func(w http.ResponseWriter, r *http.Request) {
		ServeWS(hub, w, r)
	})
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("ok\n"))
	})
	mux.Handle("GET /", http.FileServerFS(static))

	var handler http.Handler = mux
	handler = cacheControlMiddleware(handler)
	if opts.Debug {
		handler = loggingMiddleware(handler)
	}
	return hub, handler
}

// cacheControlMiddleware keeps browsers from serving a stale client between
// runs.
func cacheControlMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs the method and URL path of every incoming HTTP request.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("Received request: %s %s", r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
	})
}
