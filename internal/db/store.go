package db

import (
	"context"
	"crypto/rand"
	"database/sql"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/tabstash/internal/snapshot"
)

// ChangeKind describes what happened to the stored document.
type ChangeKind string

const (
	ChangeSaved   ChangeKind = "saved"
	ChangeCleared ChangeKind = "cleared"
)

// Change is delivered to subscribers after every successful write.
type Change struct {
	Key      string
	Kind     ChangeKind
	Revision string // empty for ChangeCleared
}

// DocumentStore keeps one snapshot document under a fixed key.
// Every save replaces the whole document and gets a new ULID revision.
type DocumentStore struct {
	db  *sql.DB
	key string

	mu     sync.Mutex
	nextID int
	subs   map[int]func(Change)
}

// NewDocumentStore creates a store for the document under key.
func NewDocumentStore(db *sql.DB, key string) *DocumentStore {
	return &DocumentStore{
		db:   db,
		key:  key,
		subs: make(map[int]func(Change)),
	}
}

// Key returns the fixed document key.
func (s *DocumentStore) Key() string {
	return s.key
}

// Load returns the stored document, or nil if none has been saved.
func (s *DocumentStore) Load(ctx context.Context) (*snapshot.SavedState, error) {
	doc, err := GetDocument(ctx, s.db, s.key)
	if err != nil || doc == nil {
		return nil, err
	}
	return doc.State, nil
}

// Revision returns the revision of the stored document, or "" if none exists.
func (s *DocumentStore) Revision(ctx context.Context) (string, error) {
	doc, err := GetDocument(ctx, s.db, s.key)
	if err != nil || doc == nil {
		return "", err
	}
	return doc.Revision, nil
}

// Save replaces the stored document.
func (s *DocumentStore) Save(ctx context.Context, state *snapshot.SavedState) error {
	revision, err := newRevision()
	if err != nil {
		return err
	}
	if err := PutDocument(ctx, s.db, s.key, revision, state); err != nil {
		return err
	}
	s.notify(Change{Key: s.key, Kind: ChangeSaved, Revision: revision})
	return nil
}

// Clear removes the stored document. Clearing an absent document is not an error.
func (s *DocumentStore) Clear(ctx context.Context) error {
	existed, err := DeleteDocument(ctx, s.db, s.key)
	if err != nil {
		return err
	}
	if existed {
		s.notify(Change{Key: s.key, Kind: ChangeCleared})
	}
	return nil
}

// Subscribe registers fn for change notifications and returns a function
// that removes it. fn runs synchronously on the writer's goroutine.
func (s *DocumentStore) Subscribe(fn func(Change)) (cancel func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *DocumentStore) notify(c Change) {
	s.mu.Lock()
	fns := make([]func(Change), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(c)
	}
}

// newRevision generates a new ULID revision.
func newRevision() (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
