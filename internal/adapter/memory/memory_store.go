// Package memory provides an in-memory entity store for tests and
// STORE_DRIVER=memory.
package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/sm8ta/webike_rental_microservice/internal/core/domain"
	"github.com/sm8ta/webike_rental_microservice/internal/core/ports"
)

var _ ports.EntityStore = (*Store)(nil)

type Store struct {
	mu     sync.RWMutex
	nextID int64
	docs   map[domain.Kind]map[int64][]byte
}

func NewStore() *Store {
	return &Store{docs: make(map[domain.Kind]map[int64][]byte)}
}

func (s *Store) Get(_ context.Context, kind domain.Kind, id int64) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.docs[kind][id]
	if !ok {
		return nil, fmt.Errorf("%s %d: %w", kind, id, domain.ErrNotFound)
	}
	return &domain.Document{Kind: kind, ID: id, Data: bytes.Clone(data)}, nil
}

func (s *Store) Put(_ context.Context, doc *domain.Document) error {
	if !json.Valid(doc.Data) {
		return fmt.Errorf("%w: %s document is not valid JSON", domain.ErrBadRequest, doc.Kind)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if doc.Kind == domain.KindUsers {
		if err := s.checkUniqueRenter(doc); err != nil {
			return err
		}
	}

	if doc.ID == 0 {
		s.nextID++
		doc.ID = s.nextID
	} else if doc.ID > s.nextID {
		s.nextID = doc.ID
	}
	if s.docs[doc.Kind] == nil {
		s.docs[doc.Kind] = make(map[int64][]byte)
	}
	s.docs[doc.Kind][doc.ID] = bytes.Clone(doc.Data)
	return nil
}

func (s *Store) Delete(_ context.Context, kind domain.Kind, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.docs[kind][id]; !ok {
		return fmt.Errorf("%s %d: %w", kind, id, domain.ErrNotFound)
	}
	delete(s.docs[kind], id)
	return nil
}

func (s *Store) Query(_ context.Context, q domain.Query) ([]*domain.Document, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]int64, 0, len(s.docs[q.Kind]))
	for id, data := range s.docs[q.Kind] {
		if q.Filter != nil && !matches(data, q.Filter) {
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	if q.Offset >= len(ids) {
		return []*domain.Document{}, false, nil
	}
	ids = ids[q.Offset:]
	more := false
	if q.Limit > 0 && len(ids) > q.Limit {
		ids = ids[:q.Limit]
		more = true
	}

	docs := make([]*domain.Document, 0, len(ids))
	for _, id := range ids {
		docs = append(docs, &domain.Document{Kind: q.Kind, ID: id, Data: bytes.Clone(s.docs[q.Kind][id])})
	}
	return docs, more, nil
}

// checkUniqueRenter mirrors the unique renter_id index of the database stores.
func (s *Store) checkUniqueRenter(doc *domain.Document) error {
	var user struct {
		RenterID string `json:"renter_id"`
	}
	if err := json.Unmarshal(doc.Data, &user); err != nil || user.RenterID == "" {
		return nil
	}
	filter := &domain.Filter{Field: "renter_id", Value: user.RenterID}
	for id, data := range s.docs[domain.KindUsers] {
		if id != doc.ID && matches(data, filter) {
			return fmt.Errorf("%w: renter_id %s", domain.ErrDuplicate, user.RenterID)
		}
	}
	return nil
}

// Len reports how many documents of kind are stored.
func (s *Store) Len(kind domain.Kind) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs[kind])
}

// matches compares the field's text form, the same way the postgres adapter
// compares data->>field.
func matches(data []byte, f *domain.Filter) bool {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return false
	}
	raw, ok := fields[f.Field]
	if !ok {
		return false
	}
	var v interface{}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil || v == nil {
		return false
	}
	return fmt.Sprint(v) == fmt.Sprint(f.Value)
}
