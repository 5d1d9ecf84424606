package memory

import (
	"context"
	"time"

	sequencedomain "github.com/smallbiznis/clinicbill/internal/sequence/domain"
)

type sequenceStore struct{ *Store }

func (s *sequenceStore) Find(_ context.Context, key string) (*sequencedomain.Sequence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seq, ok := s.sequences[key]
	if !ok {
		return nil, nil
	}
	return &seq, nil
}

func (s *sequenceStore) Create(_ context.Context, seq *sequencedomain.Sequence) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sequences[seq.Key]; exists {
		return sequencedomain.ErrSequenceExists
	}
	s.sequences[seq.Key] = *seq
	return nil
}

func (s *sequenceStore) CompareAndSwap(_ context.Context, key string, expected, next int64, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seq, ok := s.sequences[key]
	if !ok || seq.Value != expected {
		return false, nil
	}
	seq.Value = next
	seq.UpdatedAt = at
	s.sequences[key] = seq
	return true, nil
}
