package lsp

import (
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/woxQAQ/sql-ls/pkg/protocol"
)

// Document is an open editor buffer.
type Document struct {
	URI     string
	Text    string
	Version int
}

// DocumentStore holds the open documents of one client.
type DocumentStore struct {
	mu        sync.RWMutex
	documents map[string]*Document
}

// NewDocumentStore creates an empty store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{documents: make(map[string]*Document)}
}

// Open adds or replaces a document.
func (s *DocumentStore) Open(uri, text string, version int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.documents[uri] = &Document{URI: uri, Text: text, Version: version}
}

// Close forgets a document.
func (s *DocumentStore) Close(uri string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.documents, uri)
}

// Get returns a copy of the document, or false when it is not open.
func (s *DocumentStore) Get(uri string) (Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.documents[uri]
	if !ok {
		return Document{}, false
	}
	return *doc, true
}

// Apply applies content changes in order. A change without a range replaces
// the whole text. Changes to a document that is not open are ignored.
func (s *DocumentStore) Apply(uri string, version int, changes []protocol.TextDocumentContentChangeEvent) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.documents[uri]
	if !ok {
		return false
	}
	text := doc.Text
	for _, c := range changes {
		if c.Range == nil {
			text = c.Text
			continue
		}
		start, end := offsetOf(text, c.Range.Start), offsetOf(text, c.Range.End)
		if end < start {
			start, end = end, start
		}
		text = text[:start] + c.Text + text[end:]
	}
	doc.Text = text
	doc.Version = version
	return true
}

// Len returns the number of open documents.
func (s *DocumentStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.documents)
}

// offsetOf converts a 0-based line and rune column to a byte offset,
// clamping past-the-end positions.
func offsetOf(text string, pos protocol.Position) int {
	offset := 0
	for line := 0; line < pos.Line; line++ {
		i := strings.IndexByte(text[offset:], '\n')
		if i < 0 {
			return len(text)
		}
		offset += i + 1
	}

	lineEnd := len(text)
	if i := strings.IndexByte(text[offset:], '\n'); i >= 0 {
		lineEnd = offset + i
	}
	for n := 0; n < pos.Character && offset < lineEnd; n++ {
		_, size := utf8.DecodeRuneInString(text[offset:])
		offset += size
	}
	return offset
}

// textInRange returns the text between two 0-based positions.
func textInRange(text string, r protocol.Range) string {
	start, end := offsetOf(text, r.Start), offsetOf(text, r.End)
	if end < start {
		start, end = end, start
	}
	return text[start:end]
}
