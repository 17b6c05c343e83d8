// Package transport serves the bridge over HTTP for development: JSON calls
// on POST /call/{module}/{method} and a websocket stream of emitted events
// on GET /events.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/roach88/aepbridge/internal/bridge"
	"github.com/roach88/aepbridge/internal/call"
	"github.com/roach88/aepbridge/internal/dyn"
)

// maxBody caps a call's argument payload.
const maxBody = 1 << 20

var errBodyTooLarge = errors.New("body too large")

// Presenter triggers an in-app message from the vendor side.
type Presenter interface {
	PresentMessage(id string) (bool, error)
}

// Server exposes one bridge.
type Server struct {
	bridge    *bridge.Bridge
	logger    *slog.Logger
	presenter Presenter
	router    chi.Router
}

// Option configures a Server.
type Option func(*Server)

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithPresenter enables POST /messages/{id}/present.
func WithPresenter(p Presenter) Option {
	return func(s *Server) { s.presenter = p }
}

// New builds the router for b.
func New(b *bridge.Bridge, opts ...Option) *Server {
	s := &Server{bridge: b, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(chimw.RequestID)
	r.Get("/methods", s.handleMethods)
	r.Get("/versions", s.handleVersions)
	r.Post("/call/{module}/{method}", s.handleCall)
	r.Get("/events", s.handleEvents)
	if s.presenter != nil {
		r.Post("/messages/{id}/present", s.handlePresent)
	}
	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is done. ready, if set, receives
// the bound address once the listener is open.
func (s *Server) ListenAndServe(ctx context.Context, addr string, ready func(net.Addr)) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	srv := &http.Server{Handler: s, ReadHeaderTimeout: 10 * time.Second}
	if ready != nil {
		ready(ln.Addr())
	}
	s.logger.Info("transport listening", "addr", ln.Addr().String())

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleMethods(w http.ResponseWriter, _ *http.Request) {
	methods := s.bridge.Methods()
	list := make(dyn.List, len(methods))
	for i, m := range methods {
		list[i] = dyn.String(m)
	}
	s.write(w, http.StatusOK, dyn.Map{"methods": list})
}

func (s *Server) handleVersions(w http.ResponseWriter, r *http.Request) {
	versions, err := s.bridge.ExtensionVersions(r.Context())
	if err != nil {
		s.write(w, http.StatusOK, failure(call.Classify("", err)))
		return
	}
	out := dyn.Map{}
	for k, v := range versions {
		out[k] = dyn.String(v)
	}
	s.write(w, http.StatusOK, dyn.Map{"ok": dyn.Bool(true), "result": out})
}

// handleCall answers boundary failures with 200 and ok=false; only a body
// that is not a JSON array is a 400.
func (s *Server) handleCall(w http.ResponseWriter, r *http.Request) {
	module := chi.URLParam(r, "module")
	method := chi.URLParam(r, "method")
	op := module + "." + method

	args, err := readArgs(w, r)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, errBodyTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		s.write(w, status, failure(call.Programming(op, "%s", err)))
		return
	}
	result, err := s.bridge.Call(r.Context(), module, method, args)
	if err != nil {
		s.write(w, http.StatusOK, failure(call.Classify(op, err)))
		return
	}
	s.write(w, http.StatusOK, dyn.Map{"ok": dyn.Bool(true), "result": result})
}

// handlePresent starts the presentation and returns at once; the outcome
// arrives on the event stream.
func (s *Server) handlePresent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	go func() {
		shown, err := s.presenter.PresentMessage(id)
		if err != nil {
			s.logger.Warn("present message failed", "id", id, "error", err)
			return
		}
		s.logger.Debug("message presented", "id", id, "shown", shown)
	}()
	s.write(w, http.StatusAccepted, dyn.Map{"ok": dyn.Bool(true), "result": dyn.Null{}})
}

func readArgs(w http.ResponseWriter, r *http.Request) (dyn.List, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, fmt.Errorf("%w (limit %d bytes)", errBodyTooLarge, maxBody)
		}
		return nil, err
	}
	if len(body) == 0 {
		return dyn.List{}, nil
	}
	v, err := dyn.UnmarshalValue(body)
	if err != nil {
		return nil, err
	}
	args, ok := v.(dyn.List)
	if !ok {
		return nil, errors.New("body must be a JSON array of arguments")
	}
	return args, nil
}

func failure(err *call.Error) dyn.Map {
	return dyn.Map{"ok": dyn.Bool(false), "error": err.Encode()}
}

func (s *Server) write(w http.ResponseWriter, status int, body dyn.Value) {
	data, err := dyn.MarshalCanonical(body)
	if err != nil {
		s.logger.Error("encode response", "error", err)
		http.Error(w, "encode response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(append(data, '\n')); err != nil {
		s.logger.Debug("write response", "error", err)
	}
}
