package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/dannyrandall/moviesdb/internal/movies"
	"github.com/dannyrandall/moviesdb/internal/store"
)

const (
	maxBodyBytes = 1 << 20

	defaultPage = 1
	defaultSize = 10
)

// inputError is a malformed request. msg is returned to the client.
type inputError struct {
	msg string
	err error
}

func (e *inputError) Error() string {
	if e.err == nil {
		return e.msg
	}
	return e.msg + ": " + e.err.Error()
}

func (e *inputError) Unwrap() error {
	return e.err
}

type updateRequest struct {
	Name string `json:"name" validate:"required"`
}

type pageRequest struct {
	Page int
	Size int
}

// skip is the number of records before the page. ok is false when the page
// lies beyond any addressable record.
func (p pageRequest) skip() (n int64, ok bool) {
	if int64(p.Page-1) > math.MaxInt64/int64(p.Size) {
		return 0, false
	}
	return int64(p.Page-1) * int64(p.Size), true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return &inputError{msg: "Invalid request body", err: err}
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return &inputError{msg: "Invalid request body", err: errors.New("unexpected data after JSON value")}
	}
	return nil
}

// decodeMovie reads a movie document from the body. Identifiers are
// assigned by the store, so a client supplied one is dropped.
func decodeMovie(w http.ResponseWriter, r *http.Request) (movies.Document, error) {
	var doc movies.Document
	if err := decodeBody(w, r, &doc); err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, &inputError{msg: "Request body must be a JSON object"}
	}

	return doc.WithoutID(), nil
}

func (m *Movies) decodeUpdate(w http.ResponseWriter, r *http.Request) (updateRequest, error) {
	var req updateRequest
	if err := decodeBody(w, r, &req); err != nil {
		return req, err
	}
	if err := m.validate.Struct(req); err != nil {
		return req, &inputError{msg: "Name is required", err: err}
	}

	return req, nil
}

// movieID reads the id query parameter. A missing id is reported like a
// malformed one.
func (m *Movies) movieID(r *http.Request) (string, error) {
	id := r.URL.Query().Get("id")
	if err := m.validate.Var(id, "required"); err != nil {
		return "", fmt.Errorf("%w: id query parameter is missing", store.ErrInvalidID)
	}

	return id, nil
}

// pageRequest never fails: unusable page and size values fall back to the
// defaults and size is capped at MaxPageSize.
func (m *Movies) pageRequest(r *http.Request) pageRequest {
	q := r.URL.Query()
	p := pageRequest{
		Page: intParam(q, "page", defaultPage),
		Size: intParam(q, "size", defaultSize),
	}
	if p.Size > m.opts.MaxPageSize {
		p.Size = m.opts.MaxPageSize
	}

	return p
}

var leadingInt = regexp.MustCompile(`^[+-]?[0-9]+`)

// intParam parses the leading integer of the parameter, so "2abc" is 2 and
// "1.5" is 1. It returns def when there is no integer or it is below 1.
func intParam(q url.Values, name string, def int) int {
	v := leadingInt.FindString(strings.TrimSpace(q.Get(name)))
	if v == "" {
		return def
	}

	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return def
	}
	return n
}
