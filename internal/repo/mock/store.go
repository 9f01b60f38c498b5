package mock

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/materials-data-facility/connect/internal/errs"
	"github.com/materials-data-facility/connect/internal/model"
	"github.com/materials-data-facility/connect/internal/repo"
)

// InMemoryStore is a StatusStore kept in process memory. Records are stored
// as JSON so callers never share pointers with the store.
type InMemoryStore struct {
	mu      sync.Mutex
	records map[string][]byte
	now     func() time.Time

	// UpdateHook runs before every write of Update and can be used to
	// simulate concurrent writers.
	UpdateHook func(sourceID string)
	// CreateHook runs before every Create. A returned error fails the Create.
	CreateHook func(submission *model.Submission) error
	// UpdateErr makes Update fail when set.
	UpdateErr error
}

var _ repo.StatusStore = (*InMemoryStore)(nil)

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		records: make(map[string][]byte),
		now:     time.Now,
	}
}

func (s *InMemoryStore) Create(_ context.Context, submission *model.Submission) error {
	if s.CreateHook != nil {
		err := s.CreateHook(submission)
		if err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[submission.SourceID]; ok {
		return repo.ErrAlreadyExists
	}

	now := s.now().UTC()
	submission.Revision = 1
	submission.Updated = now

	if submission.SubmissionTime.IsZero() {
		submission.SubmissionTime = now
	}

	return s.put(submission)
}

func (s *InMemoryStore) Get(_ context.Context, sourceID string) (*model.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.get(sourceID)
}

func (s *InMemoryStore) Update(
	ctx context.Context,
	sourceID string,
	mutate repo.MutateFunc,
) (*model.Submission, error) {
	const maxAttempts = 5

	if s.UpdateErr != nil {
		return nil, s.UpdateErr
	}

	for range maxAttempts {
		current, err := s.Get(ctx, sourceID)
		if err != nil {
			return nil, err
		}

		expected := current.Revision

		err = mutate(current)
		if err != nil {
			return nil, err
		}

		if s.UpdateHook != nil {
			s.UpdateHook(sourceID)
		}

		updated, err := s.compareAndSwap(current, expected)
		if err == nil {
			return updated, nil
		}

		if !errors.Is(err, repo.ErrConflict) {
			return nil, err
		}
	}

	return nil, errs.Wrap(repo.ErrUpdateResource, repo.ErrConflict)
}

func (s *InMemoryStore) ListBySourceName(_ context.Context, sourceName string) ([]*model.Submission, error) {
	out, err := s.filter(func(sub *model.Submission) bool { return sub.SourceName == sourceName })
	if err != nil {
		return nil, err
	}

	repo.SortByVersion(out)

	return out, nil
}

func (s *InMemoryStore) ListByUser(_ context.Context, userID string) ([]*model.Submission, error) {
	return s.filter(func(sub *model.Submission) bool { return sub.UserID == userID })
}

func (s *InMemoryStore) ProcessActive(_ context.Context, fn repo.BatchFunc) error {
	active, err := s.filter(func(sub *model.Submission) bool { return sub.Active })
	if err != nil {
		return err
	}

	repo.SortByVersion(active)

	for start := 0; start < len(active); start += repo.DefaultLimit {
		end := min(start+repo.DefaultLimit, len(active))

		err = fn(active[start:end])
		if err != nil {
			return err
		}
	}

	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, sourceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[sourceID]; !ok {
		return repo.ErrNotFound
	}

	delete(s.records, sourceID)

	return nil
}

// Bump increments the stored revision without other changes, as a
// concurrent writer would.
func (s *InMemoryStore) Bump(sourceID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, err := s.get(sourceID)
	if err != nil {
		return
	}

	sub.Revision++
	_ = s.put(sub)
}

func (s *InMemoryStore) compareAndSwap(sub *model.Submission, expected int64) (*model.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, err := s.get(sub.SourceID)
	if err != nil {
		return nil, err
	}

	if stored.Revision != expected {
		return nil, repo.ErrConflict
	}

	sub.Revision = expected + 1
	sub.Updated = s.now().UTC()

	err = s.put(sub)
	if err != nil {
		return nil, err
	}

	return s.get(sub.SourceID)
}

func (s *InMemoryStore) filter(keep func(*model.Submission) bool) ([]*model.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*model.Submission

	for id := range s.records {
		sub, err := s.get(id)
		if err != nil {
			return nil, err
		}

		if keep(sub) {
			out = append(out, sub)
		}
	}

	return out, nil
}

func (s *InMemoryStore) get(sourceID string) (*model.Submission, error) {
	data, ok := s.records[sourceID]
	if !ok {
		return nil, repo.ErrNotFound
	}

	sub := &model.Submission{}

	err := json.Unmarshal(data, sub)
	if err != nil {
		return nil, errs.Wrap(repo.ErrGetResource, err)
	}

	return sub, nil
}

func (s *InMemoryStore) put(sub *model.Submission) error {
	data, err := json.Marshal(sub)
	if err != nil {
		return errs.Wrap(repo.ErrCreateResource, err)
	}

	s.records[sub.SourceID] = data

	return nil
}
