package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/dannyrandall/moviesdb/internal/movies"
)

// Memory is an in-process Store. Identifiers are ksuids, so sorting them
// lexically also sorts them by creation time.
type Memory struct {
	mu   sync.RWMutex
	docs map[string]movies.Document
}

func NewMemory() *Memory {
	return &Memory{docs: make(map[string]movies.Document)}
}

func (m *Memory) Insert(_ context.Context, doc movies.Document) (string, error) {
	id := movies.NewID()
	stored := doc.WithoutID()
	stored[movies.IDField] = id

	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[id] = stored
	return id, nil
}

func (m *Memory) Get(_ context.Context, id string) (movies.Document, error) {
	key, err := parseKSUID(id)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.docs[key]
	if !ok {
		return nil, ErrNotFound
	}
	return copyDoc(doc), nil
}

func (m *Memory) UpdateName(_ context.Context, id, name string) (movies.Document, error) {
	key, err := parseKSUID(id)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[key]
	if !ok {
		return nil, ErrNotFound
	}
	doc["name"] = name
	return copyDoc(doc), nil
}

func (m *Memory) Delete(_ context.Context, id string) (movies.Document, error) {
	key, err := parseKSUID(id)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[key]
	if !ok {
		return nil, ErrNotFound
	}
	delete(m.docs, key)
	return doc, nil
}

func (m *Memory) List(_ context.Context) ([]movies.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sorted(), nil
}

func (m *Memory) Page(_ context.Context, skip, limit int64) ([]movies.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return pageOf(m.sorted(), skip, limit), nil
}

func (m *Memory) Ping(context.Context) error  { return nil }
func (m *Memory) Close(context.Context) error { return nil }

func (m *Memory) sorted() []movies.Document {
	ids := make([]string, 0, len(m.docs))
	for id := range m.docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]movies.Document, 0, len(ids))
	for _, id := range ids {
		out = append(out, copyDoc(m.docs[id]))
	}
	return out
}

func parseKSUID(id string) (string, error) {
	key, err := movies.ParseID(id)
	if err != nil {
		return "", fmt.Errorf("%w %q: %s", ErrInvalidID, id, err)
	}
	return key, nil
}

func copyDoc(doc movies.Document) movies.Document {
	out := make(movies.Document, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}

// pageOf slices an already ordered result set.
func pageOf(docs []movies.Document, skip, limit int64) []movies.Document {
	n := int64(len(docs))
	if skip >= n || limit <= 0 {
		return []movies.Document{}
	}
	end := skip + limit
	if end > n {
		end = n
	}
	return docs[skip:end]
}
