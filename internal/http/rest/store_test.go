package rest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/bwise1/campus_safety/internal/model"
	"github.com/google/uuid"
)

// memoryStore is an in-memory ReportStore. err, when set, fails every call;
// updateErr fails only Update.
type memoryStore struct {
	mu        sync.Mutex
	reports   map[uuid.UUID]model.Report
	err       error
	updateErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{reports: map[uuid.UUID]model.Report{}}
}

var errConnRefused = fmt.Errorf("%w: dial tcp 127.0.0.1:5432: connect: connection refused", ErrDatabaseUnavailable)

func (s *memoryStore) Create(_ context.Context, report model.Report) (model.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return model.Report{}, s.err
	}
	now := time.Now().UTC()
	report.CreatedAt, report.UpdatedAt = now, now
	s.reports[report.ID] = report
	return report, nil
}

func (s *memoryStore) Get(_ context.Context, id uuid.UUID) (model.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return model.Report{}, s.err
	}
	report, ok := s.reports[id]
	if !ok {
		return model.Report{}, ErrReportNotFound
	}
	return report, nil
}

func (s *memoryStore) List(_ context.Context) ([]model.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	reports := []model.Report{}
	for _, r := range s.reports {
		reports = append(reports, r)
	}
	sort.Slice(reports, func(i, j int) bool { return reports[i].CreatedAt.After(reports[j].CreatedAt) })
	return reports, nil
}

func (s *memoryStore) Update(_ context.Context, id uuid.UUID, patch model.ReportPatch) (model.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return model.Report{}, s.err
	}
	if s.updateErr != nil {
		return model.Report{}, s.updateErr
	}
	report, ok := s.reports[id]
	if !ok {
		return model.Report{}, ErrReportNotFound
	}
	report = applyPatch(report, patch)
	report.UpdatedAt = time.Now().UTC()
	s.reports[id] = report
	return report, nil
}

func (s *memoryStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if _, ok := s.reports[id]; !ok {
		return ErrReportNotFound
	}
	delete(s.reports, id)
	return nil
}

func (s *memoryStore) Ping(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *memoryStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reports)
}

// stalledStore answers reads only once the caller gives up, like a database
// that accepts connections but never replies.
type stalledStore struct {
	*memoryStore
}

func (s stalledStore) List(ctx context.Context) ([]model.Report, error) {
	<-ctx.Done()
	return nil, classifyDBError(ctx.Err())
}

func (s stalledStore) Get(ctx context.Context, _ uuid.UUID) (model.Report, error) {
	<-ctx.Done()
	return model.Report{}, classifyDBError(ctx.Err())
}

// applyPatch mirrors the repository's COALESCE update: nil fields keep the
// stored value.
func applyPatch(r model.Report, p model.ReportPatch) model.Report {
	if p.Lat != nil {
		r.Lat = *p.Lat
	}
	if p.Lng != nil {
		r.Lng = *p.Lng
	}
	if p.Type != nil {
		r.Type = *p.Type
	}
	if p.Time != nil {
		r.Time = *p.Time
	}
	if p.Status != nil {
		r.Status = *p.Status
	}
	if p.Description != nil {
		r.Description = *p.Description
	}
	if p.Urgency != nil {
		r.Urgency = *p.Urgency
	}
	if p.Photo != nil {
		r.Photo = *p.Photo
	}
	return r
}
