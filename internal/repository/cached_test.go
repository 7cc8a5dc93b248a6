package repository_test

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/C021025/DSASimulator-OJ/internal/domain"
	"github.com/C021025/DSASimulator-OJ/internal/repository"
	"github.com/C021025/DSASimulator-OJ/internal/repository/mock"
)

func TestCachedSubmissionQuery_TerminalServedFromCache(t *testing.T) {
	next := mock.NewSubmissionQuery()
	next.Put(&domain.SubmissionRecord{ID: 5, QuestionID: 1, Status: domain.SubmissionAccepted})
	cache := mock.NewSubmissionCache()
	q := repository.NewCachedSubmissionQuery(next, cache, zap.NewNop())

	for i := 0; i < 3; i++ {
		rec, err := q.GetSubmission(context.Background(), 5)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rec.ID != 5 {
			t.Errorf("expected id 5, got %d", rec.ID)
		}
	}
	if next.GetCount() != 1 {
		t.Errorf("expected 1 backend read, got %d", next.GetCount())
	}
}

func TestCachedSubmissionQuery_PendingNotCached(t *testing.T) {
	next := mock.NewSubmissionQuery()
	next.Put(&domain.SubmissionRecord{ID: 6, QuestionID: 1, Status: domain.SubmissionJudging})
	cache := mock.NewSubmissionCache()
	q := repository.NewCachedSubmissionQuery(next, cache, zap.NewNop())

	_, _ = q.GetSubmission(context.Background(), 6)
	_, _ = q.GetSubmission(context.Background(), 6)

	if next.GetCount() != 2 {
		t.Errorf("expected 2 backend reads, got %d", next.GetCount())
	}
	if len(cache.SetCalls) != 0 {
		t.Errorf("expected no cache writes, got %d", len(cache.SetCalls))
	}
}

func TestCachedSubmissionQuery_CacheErrorFallsThrough(t *testing.T) {
	next := mock.NewSubmissionQuery()
	next.Put(&domain.SubmissionRecord{ID: 7, Status: domain.SubmissionWrongAnswer})
	cache := mock.NewSubmissionCache()
	cache.GetFn = func(ctx context.Context, id int64) (*domain.SubmissionRecord, bool, error) {
		return nil, false, errors.New("redis down")
	}
	q := repository.NewCachedSubmissionQuery(next, cache, zap.NewNop())

	rec, err := q.GetSubmission(context.Background(), 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Status != domain.SubmissionWrongAnswer {
		t.Errorf("unexpected status %s", rec.Status)
	}
}

func TestCachedSubmissionQuery_NotFound(t *testing.T) {
	q := repository.NewCachedSubmissionQuery(mock.NewSubmissionQuery(), mock.NewSubmissionCache(), zap.NewNop())
	_, err := q.GetSubmission(context.Background(), 404)
	if !errors.Is(err, domain.ErrSubmissionNotFound) {
		t.Errorf("expected ErrSubmissionNotFound, got %v", err)
	}
}
