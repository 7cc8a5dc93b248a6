package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/C021025/DSASimulator-OJ/internal/domain"
	"github.com/C021025/DSASimulator-OJ/internal/eventbus"
	"github.com/C021025/DSASimulator-OJ/internal/metrics"
)

// Run executes the editor buffer against the console input. The result is
// kept only if the buffer did not change while the run was in flight.
func (w *Workbench) Run(ctx context.Context) (*domain.RunResult, error) {
	w.mu.Lock()
	if err := w.runErrLocked(); err != nil {
		w.mu.Unlock()
		metrics.ActionsTotal.WithLabelValues("run", "rejected").Inc()
		return nil, err
	}
	req := &domain.RunRequest{
		Code:     w.buffer.Code,
		Language: w.buffer.Language,
		Input:    w.consoleInput,
	}
	version := w.buffer.Version
	w.runLoading = true
	w.mu.Unlock()
	w.emit()

	w.logger.Info("Running code",
		zap.String("language", string(req.Language)),
		zap.Uint64("buffer_version", version),
	)

	start := time.Now()
	res, err := w.judge.Run(ctx, req)
	metrics.RemoteCallDuration.WithLabelValues("run").Observe(time.Since(start).Seconds())

	w.mu.Lock()
	w.runLoading = false
	if err != nil {
		w.mu.Unlock()
		metrics.ActionsTotal.WithLabelValues("run", "error").Inc()
		w.logger.Error("Run failed", zap.Error(err))
		w.postNotice(domain.NoticeError, "run failed: "+err.Error())
		w.emit()
		return nil, fmt.Errorf("run: %w", err)
	}
	if w.buffer.Version != version {
		w.mu.Unlock()
		metrics.ActionsTotal.WithLabelValues("run", "stale").Inc()
		metrics.StaleResponses.WithLabelValues("run").Inc()
		w.logger.Info("Discarding run result for edited buffer",
			zap.Uint64("buffer_version", version),
		)
		w.postNotice(domain.NoticeError, domain.ErrStaleRun.Error())
		w.emit()
		return nil, domain.ErrStaleRun
	}
	result := domain.RunResult{
		Input:         res.Input,
		Output:        res.Output,
		BufferVersion: version,
	}
	w.runResult = &result
	w.view.ActiveConsoleTab = domain.ConsoleOutput
	w.mu.Unlock()

	metrics.ActionsTotal.WithLabelValues("run", "success").Inc()
	w.postNotice(domain.NoticeInfo, "run succeeded")
	w.emit()
	out := result
	return &out, nil
}

// Submit sends the editor buffer for grading and opens the new submission.
func (w *Workbench) Submit(ctx context.Context) (*domain.SubmissionHandle, error) {
	w.mu.Lock()
	if err := w.submitErrLocked(); err != nil {
		w.mu.Unlock()
		metrics.ActionsTotal.WithLabelValues("submit", "rejected").Inc()
		return nil, err
	}
	req := &domain.SubmitRequest{
		Code:       w.buffer.Code,
		Language:   w.buffer.Language,
		QuestionID: w.opts.QuestionID,
	}
	w.submitLoading = true
	w.mu.Unlock()
	w.emit()

	w.logger.Info("Submitting code", zap.String("language", string(req.Language)))

	start := time.Now()
	handle, err := w.judge.Submit(ctx, req)
	metrics.RemoteCallDuration.WithLabelValues("submit").Observe(time.Since(start).Seconds())

	w.mu.Lock()
	w.submitLoading = false
	if err != nil {
		w.mu.Unlock()
		metrics.ActionsTotal.WithLabelValues("submit", "error").Inc()
		w.logger.Error("Submit failed", zap.Error(err))
		w.postNotice(domain.NoticeError, "submit failed: "+err.Error())
		w.emit()
		return nil, fmt.Errorf("submit: %w", err)
	}
	next := w.nav.WithTarget(handle.ID)
	w.mu.Unlock()

	metrics.ActionsTotal.WithLabelValues("submit", "success").Inc()
	w.logger.Info("Submission created", zap.Int64("submission_id", handle.ID))

	w.bus.Publish(eventbus.SubmissionCreated, eventbus.SubmissionEvent{
		QuestionID:   req.QuestionID,
		SubmissionID: handle.ID,
	})
	w.postNotice(domain.NoticeInfo, "submitted")
	w.history.PushState(next)
	w.emit()

	out := *handle
	return &out, nil
}

// CheckRun reports why Run would be rejected right now, or nil.
func (w *Workbench) CheckRun() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.runErrLocked()
}

// CheckSubmit reports why Submit would be rejected right now, or nil.
func (w *Workbench) CheckSubmit() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.submitErrLocked()
}

func (w *Workbench) runErrLocked() error {
	if err := w.actionErrLocked(); err != nil {
		return err
	}
	if w.runLoading {
		return domain.ErrRunInFlight
	}
	if strings.TrimSpace(w.buffer.Code) == "" {
		return domain.ErrEmptySourceCode
	}
	return nil
}

func (w *Workbench) submitErrLocked() error {
	if err := w.actionErrLocked(); err != nil {
		return err
	}
	if w.submitLoading {
		return domain.ErrSubmitInFlight
	}
	if strings.TrimSpace(w.buffer.Code) == "" {
		return domain.ErrEmptySourceCode
	}
	return nil
}
