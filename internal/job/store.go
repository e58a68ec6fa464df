package job

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/Moonsong-Labs/akton25-cobalt/internal/faults"
	"gorm.io/datatypes"
)

// Store tracks job state. Create must persist the pending job before
// returning so a client polling right after the create response finds it.
type Store interface {
	Create(ctx context.Context, kind Kind, payload any) (*Job, error)
	Complete(ctx context.Context, id string, result any) error
	Fail(ctx context.Context, id string, cause error) error
	Get(ctx context.Context, id string) (*Job, error)
}

// MemoryStore keeps jobs for the lifetime of the process.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]*Job
	now  func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[string]*Job), now: time.Now}
}

func (s *MemoryStore) Create(ctx context.Context, kind Kind, payload any) (*Job, error) {
	j, err := newPending(kind, payload, s.now())
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.jobs[j.ID] = j
	s.mu.Unlock()
	cp := *j
	return &cp, nil
}

func (s *MemoryStore) Complete(ctx context.Context, id string, result any) error {
	b, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	return s.finish(id, func(j *Job) {
		j.Status = StatusCompleted
		j.Result = datatypes.JSON(b)
	})
}

func (s *MemoryStore) Fail(ctx context.Context, id string, cause error) error {
	msg, kind := describe(cause)
	return s.finish(id, func(j *Job) {
		j.Status = StatusFailed
		j.Error = &msg
		j.ErrorKind = &kind
	})
}

func (s *MemoryStore) finish(id string, apply func(*Job)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return ErrNotFound
	}
	if j.Status.Terminal() {
		return ErrNotPending
	}
	apply(j)
	j.UpdatedAt = s.now()
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *j
	return &cp, nil
}

func newPending(kind Kind, payload any, now time.Time) (*Job, error) {
	if payload == nil {
		payload = struct{}{}
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return &Job{
		ID:        NewID(),
		Kind:      kind,
		Payload:   datatypes.JSON(b),
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func describe(cause error) (msg, kind string) {
	if cause == nil {
		return "unknown error", string(faults.Internal)
	}
	return cause.Error(), string(faults.KindOf(cause))
}
