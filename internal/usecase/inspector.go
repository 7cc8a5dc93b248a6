package usecase

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/C021025/DSASimulator-OJ/internal/domain"
	"github.com/C021025/DSASimulator-OJ/internal/eventbus"
	"github.com/C021025/DSASimulator-OJ/internal/metrics"
)

// beginInspectionLocked resets the viewer for id and returns the fetch context
// and the generation the fetch belongs to.
func (w *Workbench) beginInspectionLocked(id int64) (context.Context, uint64) {
	w.inspectGen++
	ctx, cancel := context.WithCancel(w.ctx)
	w.inspectCancel = cancel
	w.inspection = InspectionState{SubmissionID: id, Loading: true}
	return ctx, w.inspectGen
}

// cancelInspectionLocked stops any in-flight fetch or poll and clears the viewer.
func (w *Workbench) cancelInspectionLocked() {
	w.inspectGen++
	if w.inspectCancel != nil {
		w.inspectCancel()
		w.inspectCancel = nil
	}
	w.inspection = InspectionState{}
}

func (w *Workbench) currentInspectionLocked(gen uint64, id int64) bool {
	return w.inspectGen == gen && w.view.InspectedSubmissionID == id
}

// inspect fetches submission id and keeps polling it until the verdict is final.
func (w *Workbench) inspect(ctx context.Context, gen uint64, id int64) {
	defer w.wg.Done()

	logger := w.logger.With(zap.Int64("submission_id", id))
	sawPending := false

	for attempt := 1; ; attempt++ {
		start := time.Now()
		rec, err := w.query.GetSubmission(ctx, id)
		metrics.RemoteCallDuration.WithLabelValues("get_submission").Observe(time.Since(start).Seconds())
		if attempt > 1 {
			metrics.PollAttempts.Inc()
		}
		if ctx.Err() != nil {
			return
		}

		w.mu.Lock()
		if !w.currentInspectionLocked(gen, id) {
			w.mu.Unlock()
			metrics.StaleResponses.WithLabelValues("inspection").Inc()
			logger.Debug("Discarding stale submission detail")
			return
		}

		if errors.Is(err, domain.ErrSubmissionNotFound) {
			w.inspection = InspectionState{SubmissionID: id, NotFound: true}
			w.mu.Unlock()
			logger.Info("Inspected submission not found")
			w.emit()
			return
		}
		if err != nil {
			w.inspection.Loading = false
			w.inspection.Polling = false
			w.inspection.Error = err.Error()
			w.mu.Unlock()
			logger.Error("Failed to load submission", zap.Error(err))
			w.postNotice(domain.NoticeError, "failed to load submission: "+err.Error())
			w.emit()
			return
		}

		terminal := rec.Status.IsTerminal()
		more := !terminal && attempt < w.opts.PollMaxAttempts
		w.inspection = InspectionState{
			SubmissionID: id,
			Record:       rec,
			Polling:      more,
		}
		w.mu.Unlock()
		w.emit()

		if terminal {
			if sawPending {
				logger.Info("Submission judged", zap.String("status", rec.Status.String()))
				w.bus.Publish(eventbus.SubmissionJudged, eventbus.SubmissionEvent{
					QuestionID:   rec.QuestionID,
					SubmissionID: id,
				})
			}
			return
		}
		sawPending = true
		if !more {
			logger.Warn("Gave up polling submission", zap.Int("attempts", attempt))
			return
		}

		timer := time.NewTimer(w.opts.PollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}
