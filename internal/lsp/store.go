package lsp

import "sync"

// Document is an open buffer and the analysis of its latest version.
type Document struct {
	Text     string
	Version  int32
	Analysis *Analysis
}

type Store struct {
	mu   sync.RWMutex
	docs map[string]Document // uri -> document
}

func NewStore() *Store {
	return &Store{docs: map[string]Document{}}
}

func (s *Store) Set(uri string, doc Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[uri] = doc
}

func (s *Store) Get(uri string) (Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.docs[uri]
	return d, ok
}

func (s *Store) Delete(uri string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, uri)
}
