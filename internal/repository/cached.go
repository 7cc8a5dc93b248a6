package repository

import (
	"context"

	"go.uber.org/zap"

	"github.com/C021025/DSASimulator-OJ/internal/domain"
)

var _ SubmissionQuery = (*CachedSubmissionQuery)(nil)

// CachedSubmissionQuery serves terminal submissions from a cache and falls back
// to the wrapped query. Cache failures are logged and never surface to callers.
type CachedSubmissionQuery struct {
	next   SubmissionQuery
	cache  SubmissionCache
	logger *zap.Logger
}

// NewCachedSubmissionQuery wraps next with cache.
func NewCachedSubmissionQuery(next SubmissionQuery, cache SubmissionCache, logger *zap.Logger) *CachedSubmissionQuery {
	return &CachedSubmissionQuery{next: next, cache: cache, logger: logger}
}

func (q *CachedSubmissionQuery) GetSubmission(ctx context.Context, id int64) (*domain.SubmissionRecord, error) {
	rec, ok, err := q.cache.Get(ctx, id)
	if err != nil {
		q.logger.Warn("submission cache read failed", zap.Int64("submission_id", id), zap.Error(err))
	} else if ok {
		return rec, nil
	}

	rec, err = q.next.GetSubmission(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.Status.IsTerminal() {
		if err := q.cache.Set(ctx, rec); err != nil {
			q.logger.Warn("submission cache write failed", zap.Int64("submission_id", id), zap.Error(err))
		}
	}
	return rec, nil
}

// ListSubmissions is not cached; the log must reflect new submissions immediately.
func (q *CachedSubmissionQuery) ListSubmissions(ctx context.Context, questionID int64, page, pageSize int) (*domain.SubmissionPage, error) {
	return q.next.ListSubmissions(ctx, questionID, page, pageSize)
}
