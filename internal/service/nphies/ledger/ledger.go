package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"
)

var ErrNotFound = errors.New("submission not found")

type Status string

const (
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
	StatusError    Status = "error"
)

// Submission records one logical request sent to NPHIES. ID is the business
// identifier of the request resource, so resending the same request lands on
// the same record.
type Submission struct {
	ID            string          `json:"id"`
	Kind          string          `json:"kind"`
	CorrelationID string          `json:"correlation_id"`
	PayerCode     string          `json:"payer_code"`
	MemberID      string          `json:"member_id"`
	BundleID      string          `json:"bundle_id"`
	Status        Status          `json:"status"`
	Errors        []string        `json:"errors"`
	Response      json.RawMessage `json:"response,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Filter narrows List. Zero fields match everything.
type Filter struct {
	Kind      string
	PayerCode string
	Status    Status
	Since     time.Time
	Limit     int
}

func (f Filter) Match(s Submission) bool {
	if f.Kind != "" && s.Kind != f.Kind {
		return false
	}
	if f.PayerCode != "" && s.PayerCode != f.PayerCode {
		return false
	}
	if f.Status != "" && s.Status != f.Status {
		return false
	}
	if !f.Since.IsZero() && s.CreatedAt.Before(f.Since) {
		return false
	}
	return true
}

type Repository interface {
	// Save inserts s or replaces the record with the same ID, keeping the
	// original CreatedAt.
	Save(ctx context.Context, s Submission) (Submission, error)
	Get(ctx context.Context, id string) (Submission, error)
	// List returns matching submissions, newest first.
	List(ctx context.Context, f Filter) ([]Submission, error)
}

// MemoryRepository keeps submissions in process memory. It is used when no
// database is configured and in tests.
type MemoryRepository struct {
	mu    sync.RWMutex
	items map[string]Submission
	now   func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		items: make(map[string]Submission),
		now:   time.Now,
	}
}

func (r *MemoryRepository) Save(_ context.Context, s Submission) (Submission, error) {
	if s.ID == "" {
		return Submission{}, errors.New("submission id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now().UTC()
	if prev, ok := r.items[s.ID]; ok {
		s.CreatedAt = prev.CreatedAt
	} else if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now
	s.Errors = append([]string(nil), s.Errors...)
	r.items[s.ID] = s
	return s, nil
}

func (r *MemoryRepository) Get(_ context.Context, id string) (Submission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.items[id]
	if !ok {
		return Submission{}, ErrNotFound
	}
	return s, nil
}

func (r *MemoryRepository) List(_ context.Context, f Filter) ([]Submission, error) {
	r.mu.RLock()
	out := make([]Submission, 0, len(r.items))
	for _, s := range r.items {
		if f.Match(s) {
			out = append(out, s)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}
