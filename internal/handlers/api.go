package handlers

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/dannyrandall/moviesdb/internal/otel"
	"github.com/dannyrandall/moviesdb/internal/store"
	"github.com/go-playground/validator/v10"
)

type Options struct {
	MaxPageSize    int
	RequestTimeout time.Duration
	AllowedOrigins []string

	// Tracing is one of the config.Tracing* modes.
	Tracing     string
	ServiceName string

	// LogOutput receives per-request logs. Defaults to os.Stderr.
	LogOutput io.Writer
}

// Movies serves the movie CRUD routes on top of a Store.
type Movies struct {
	store    store.Store
	opts     Options
	validate *validator.Validate
	handler  http.Handler
}

type handlerFunc func(ctx context.Context, log *log.Logger, w http.ResponseWriter, r *http.Request)

func New(s store.Store, opts Options) *Movies {
	if opts.MaxPageSize <= 0 {
		opts.MaxPageSize = 100
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 10 * time.Second
	}
	if opts.LogOutput == nil {
		opts.LogOutput = os.Stderr
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}

	m := &Movies{
		store:    s,
		opts:     opts,
		validate: validator.New(),
	}

	mux := http.NewServeMux()
	m.handle(mux, "POST /add-movie", "add-movie", m.createMovie)
	m.handle(mux, "PUT /update-movie", "update-movie", m.updateMovie)
	m.handle(mux, "DELETE /delete-movie", "delete-movie", m.deleteMovie)
	m.handle(mux, "GET /get-single", "get-single", m.getMovie)
	m.handle(mux, "GET /get-all", "get-all", m.getAllMovies)
	m.handle(mux, "GET /get-paginated", "get-paginated", m.getPaginatedMovies)
	m.handle(mux, "GET /healthz", "healthz", m.healthz)
	m.handle(mux, "/", "not-found", m.notFound)

	m.handler = cors(mux, opts.AllowedOrigins)
	return m
}

func (m *Movies) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.handler.ServeHTTP(w, r)
}

// handle registers fn under pattern. Store calls made by fn outlive a client
// disconnect but not the configured request timeout.
func (m *Movies) handle(mux *http.ServeMux, pattern, operation string, fn handlerFunc) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log := log.New(m.opts.LogOutput, fmt.Sprintf("TRACE-ID: %s - ", otel.TraceID(r.Context())), log.LstdFlags|log.Lmsgprefix)
		log.Printf("Handling request: %s %s", r.Method, r.URL.String())

		ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), m.opts.RequestTimeout)
		defer cancel()

		fn(ctx, log, w, r)
	})

	mux.Handle(pattern, otel.Handler(m.opts.Tracing, m.opts.ServiceName, operation, h))
}

func (m *Movies) createMovie(ctx context.Context, log *log.Logger, w http.ResponseWriter, r *http.Request) {
	doc, err := decodeMovie(w, r)
	if err != nil {
		badRequest(w, log, err)
		return
	}

	log.Printf("Creating movie %v", doc)

	id, err := m.store.Insert(ctx, doc)
	if err != nil {
		storeError(w, log, "insert movie", err)
		return
	}

	log.Printf("Created movie %q", id)
	writeJSON(w, http.StatusCreated, log, envelope{ID: id, Result: resultSuccess})
}

func (m *Movies) updateMovie(ctx context.Context, log *log.Logger, w http.ResponseWriter, r *http.Request) {
	id, err := m.movieID(r)
	if err != nil {
		storeError(w, log, "parse id", err)
		return
	}

	req, err := m.decodeUpdate(w, r)
	if err != nil {
		badRequest(w, log, err)
		return
	}

	log.Printf("Renaming movie %q to %q", id, req.Name)

	doc, err := m.store.UpdateName(ctx, id, req.Name)
	if err != nil {
		storeError(w, log, "update movie", err)
		return
	}

	writeJSON(w, http.StatusOK, log, envelope{Result: resultSuccess, Data: doc})
}

func (m *Movies) deleteMovie(ctx context.Context, log *log.Logger, w http.ResponseWriter, r *http.Request) {
	id, err := m.movieID(r)
	if err != nil {
		storeError(w, log, "parse id", err)
		return
	}

	log.Printf("Deleting movie %q", id)

	doc, err := m.store.Delete(ctx, id)
	if err != nil {
		storeError(w, log, "delete movie", err)
		return
	}

	writeJSON(w, http.StatusOK, log, envelope{
		Result: fmt.Sprintf("Movie name: %s, got deleted successfully", doc.Name()),
	})
}

func (m *Movies) getMovie(ctx context.Context, log *log.Logger, w http.ResponseWriter, r *http.Request) {
	id, err := m.movieID(r)
	if err != nil {
		storeError(w, log, "parse id", err)
		return
	}

	log.Printf("Getting movie %q", id)

	doc, err := m.store.Get(ctx, id)
	if err != nil {
		storeError(w, log, "get movie", err)
		return
	}

	writeJSON(w, http.StatusOK, log, envelope{Result: resultSuccess, Data: doc})
}

func (m *Movies) getAllMovies(ctx context.Context, log *log.Logger, w http.ResponseWriter, r *http.Request) {
	docs, err := m.store.List(ctx)
	if err != nil {
		storeError(w, log, "list movies", err)
		return
	}

	log.Printf("Got %d movies", len(docs))
	writeJSON(w, http.StatusOK, log, envelope{Result: resultSuccess, Data: docs})
}

func (m *Movies) getPaginatedMovies(ctx context.Context, log *log.Logger, w http.ResponseWriter, r *http.Request) {
	p := m.pageRequest(r)
	skip, ok := p.skip()
	if !ok {
		writeJSON(w, http.StatusOK, log, envelope{Result: resultNoData})
		return
	}

	log.Printf("Getting page %d of size %d", p.Page, p.Size)

	docs, err := m.store.Page(ctx, skip, int64(p.Size))
	if err != nil {
		storeError(w, log, "page movies", err)
		return
	}

	if len(docs) == 0 {
		writeJSON(w, http.StatusOK, log, envelope{Result: resultNoData})
		return
	}
	writeJSON(w, http.StatusOK, log, envelope{Result: resultSuccess, Data: docs})
}

func (m *Movies) healthz(ctx context.Context, log *log.Logger, w http.ResponseWriter, r *http.Request) {
	if err := m.store.Ping(ctx); err != nil {
		storeError(w, log, "ping store", err)
		return
	}

	writeJSON(w, http.StatusOK, log, envelope{Result: resultSuccess})
}

func (m *Movies) notFound(_ context.Context, log *log.Logger, w http.ResponseWriter, r *http.Request) {
	httpError(w, http.StatusNotFound, log, "Route not found", "no route for %s %s", r.Method, r.URL.Path)
}
