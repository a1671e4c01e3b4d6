package repository

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/startupforworld/coach/internal/domain/model"
	"github.com/startupforworld/coach/internal/domain/recommend"
)

// MemoryStore keeps everything in process. It backs tests and the default
// configuration.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]model.ClinicalRecord
	leads   map[string]model.ProspectLead
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]model.ClinicalRecord),
		leads:   make(map[string]model.ProspectLead),
	}
}

func (s *MemoryStore) SaveClinicalRecord(_ context.Context, rec model.ClinicalRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[rec.ID]; ok {
		return ErrDuplicate
	}
	rec.Protocol = slices.Clone(rec.Protocol)
	rec.RiskFlags = slices.Clone(rec.RiskFlags)
	s.records[rec.ID] = rec
	return nil
}

func (s *MemoryStore) UpdateProtocol(_ context.Context, recordID string, protocol []recommend.ProtocolEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[recordID]
	if !ok {
		return ErrNotFound
	}
	rec.Protocol = slices.Clone(protocol)
	s.records[recordID] = rec
	return nil
}

func (s *MemoryStore) ListClinicalRecords(_ context.Context, userID string, limit int) ([]model.ClinicalRecord, error) {
	limit, err := normalizeLimit(limit)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	out := make([]model.ClinicalRecord, 0)
	for _, rec := range s.records {
		if rec.UserID == userID {
			out = append(out, rec)
		}
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b model.ClinicalRecord) int { return newestFirst(a.CreatedAt, b.CreatedAt, a.ID, b.ID) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) SaveLead(_ context.Context, lead model.ProspectLead) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.leads[lead.ID]; ok {
		return ErrDuplicate
	}
	s.leads[lead.ID] = lead
	return nil
}

func (s *MemoryStore) ListLeads(_ context.Context, referrerID string, limit int) ([]model.ProspectLead, error) {
	limit, err := normalizeLimit(limit)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	out := make([]model.ProspectLead, 0)
	for _, l := range s.leads {
		if l.ReferrerID == referrerID {
			out = append(out, l)
		}
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b model.ProspectLead) int { return newestFirst(a.CreatedAt, b.CreatedAt, a.ID, b.ID) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) UpdateLeadStatus(_ context.Context, id string, status model.LeadStatus, at time.Time) (model.ProspectLead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.leads[id]
	if !ok {
		return model.ProspectLead{}, ErrNotFound
	}
	l.Status = status
	l.LastActivity = at
	s.leads[id] = l
	return l, nil
}

func (s *MemoryStore) Migrate(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }

// newestFirst orders by time descending, ties by id ascending.
func newestFirst(ta, tb time.Time, ida, idb string) int {
	if c := tb.Compare(ta); c != 0 {
		return c
	}
	switch {
	case ida < idb:
		return -1
	case ida > idb:
		return 1
	}
	return 0
}
