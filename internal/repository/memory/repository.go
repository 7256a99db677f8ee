// Package memory is an in-process remote store used in development mode
// and by tests. It follows the same path addressing as the Mongo store.
package memory

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"

	"github.com/mamadbah2/herdwise/internal/domain/models"
)

// Repository keeps documents keyed by their full path.
type Repository struct {
	mu   sync.RWMutex
	docs map[string]json.RawMessage
}

// NewRepository returns an empty store.
func NewRepository() *Repository {
	return &Repository{docs: make(map[string]json.RawMessage)}
}

// Set stores a copy of data at path.
func (r *Repository) Set(_ context.Context, path string, data json.RawMessage) error {
	if _, _, _, err := models.ParseDocumentPath(path); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[path] = append(json.RawMessage(nil), data...)
	return nil
}

// Delete removes the document at path.
func (r *Repository) Delete(_ context.Context, path string) error {
	if _, _, _, err := models.ParseDocumentPath(path); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.docs, path)
	return nil
}

// GetAll returns the documents under collectionPath ordered by path.
func (r *Repository) GetAll(_ context.Context, collectionPath string) ([]json.RawMessage, error) {
	if _, _, err := models.ParseCollectionPath(collectionPath); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	paths := r.pathsUnder(collectionPath)
	docs := make([]json.RawMessage, 0, len(paths))
	for _, p := range paths {
		docs = append(docs, append(json.RawMessage(nil), r.docs[p]...))
	}
	return docs, nil
}

// DeleteAll removes every document under collectionPath.
func (r *Repository) DeleteAll(_ context.Context, collectionPath string) error {
	if _, _, err := models.ParseCollectionPath(collectionPath); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.pathsUnder(collectionPath) {
		delete(r.docs, p)
	}
	return nil
}

// Get returns the document at path.
func (r *Repository) Get(path string) (json.RawMessage, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.docs[path]
	return doc, ok
}

// Len returns the number of stored documents.
func (r *Repository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.docs)
}

// Ping always succeeds.
func (r *Repository) Ping(context.Context) error { return nil }

func (r *Repository) pathsUnder(collectionPath string) []string {
	prefix := collectionPath + "/"
	var paths []string
	for p := range r.docs {
		if strings.HasPrefix(p, prefix) {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)
	return paths
}
