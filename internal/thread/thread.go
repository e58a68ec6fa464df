// Package thread keeps the running history of a story so follow-up prompts
// continue where the last one left off.
package thread

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

const DefaultWindow = 20

type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Store holds at most a window of recent turns per thread. History of an
// unknown thread is empty, not an error.
type Store interface {
	History(ctx context.Context, id string) ([]Turn, error)
	Append(ctx context.Context, id string, turns ...Turn) error
}

// NewID returns a fresh thread id.
func NewID() string {
	return uuid.NewString()
}

type MemoryStore struct {
	mu      sync.Mutex
	window  int
	threads map[string][]Turn
}

func NewMemoryStore(window int) *MemoryStore {
	if window <= 0 {
		window = DefaultWindow
	}
	return &MemoryStore{window: window, threads: make(map[string][]Turn)}
}

func (s *MemoryStore) History(ctx context.Context, id string) ([]Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Turn(nil), s.threads[id]...), nil
}

func (s *MemoryStore) Append(ctx context.Context, id string, turns ...Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := append(s.threads[id], turns...)
	if over := len(h) - s.window; over > 0 {
		h = append([]Turn(nil), h[over:]...)
	}
	s.threads[id] = h
	return nil
}
