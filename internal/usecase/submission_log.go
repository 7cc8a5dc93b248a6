package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/C021025/DSASimulator-OJ/internal/domain"
	"github.com/C021025/DSASimulator-OJ/internal/eventbus"
	"github.com/C021025/DSASimulator-OJ/internal/metrics"
	"github.com/C021025/DSASimulator-OJ/internal/repository"
)

// DefaultPageSize is the number of submissions shown per log page.
const DefaultPageSize = 10

// LogListState is a copy of the submission log as last loaded.
type LogListState struct {
	QuestionID int64                     `json:"questionId"`
	PageNum    int                       `json:"pageNum"`
	PageSize   int                       `json:"pageSize"`
	Total      int64                     `json:"total"`
	Records    []domain.SubmissionRecord `json:"records"`
	Loading    bool                      `json:"loading"`
	Error      string                    `json:"error,omitempty"`
}

// SubmissionLog is the paged list of a question's submissions.
type SubmissionLog struct {
	query    repository.SubmissionQuery
	bus      *eventbus.Bus
	logger   *zap.Logger
	pageSize int
	group    singleflight.Group

	mu         sync.Mutex
	state      LogListState
	seq        uint64
	appliedSeq uint64
	writeGen   uint64
	active     bool
	onPage     func(page int)
	onChange   func()

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSubmissionLog creates a log list that refreshes itself on submission
// events while it is active.
func NewSubmissionLog(query repository.SubmissionQuery, bus *eventbus.Bus, pageSize int, logger *zap.Logger) *SubmissionLog {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	ctx, cancel := context.WithCancel(context.Background())
	l := &SubmissionLog{
		query:    query,
		bus:      bus,
		logger:   logger,
		pageSize: pageSize,
		state:    LogListState{PageNum: 1, PageSize: pageSize, Records: []domain.SubmissionRecord{}},
		ctx:      ctx,
		cancel:   cancel,
	}
	bus.On(eventbus.SubmissionCreated, l.handleSubmissionEvent)
	bus.On(eventbus.SubmissionJudged, l.handleSubmissionEvent)
	return l
}

// OnPage sets the callback SetPage delegates to. The owner turns it into a navigation.
func (l *SubmissionLog) OnPage(fn func(page int)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onPage = fn
}

// OnChange sets a callback invoked after every state change, outside the lock.
func (l *SubmissionLog) OnChange(fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onChange = fn
}

// State returns a copy of the current list state.
func (l *SubmissionLog) State() LogListState {
	l.mu.Lock()
	defer l.mu.Unlock()
	s := l.state
	s.Records = append([]domain.SubmissionRecord(nil), l.state.Records...)
	return s
}

// SetActive marks whether the log tab is shown.
func (l *SubmissionLog) SetActive(active bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.active = active
}

// Active reports whether the log tab is shown.
func (l *SubmissionLog) Active() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}

// SetPage requests page n. The fetch happens when the resulting navigation is applied.
func (l *SubmissionLog) SetPage(n int) {
	l.mu.Lock()
	fn := l.onPage
	l.mu.Unlock()
	if n < 1 {
		n = 1
	}
	if fn != nil {
		fn(n)
		return
	}
	l.LoadAsync(l.State().QuestionID, n)
}

// Load fetches one page and applies it if it is still the requested one.
func (l *SubmissionLog) Load(ctx context.Context, questionID int64, page int) error {
	if page < 1 {
		page = 1
	}

	l.mu.Lock()
	if l.state.QuestionID != questionID {
		l.state.Records = []domain.SubmissionRecord{}
		l.state.Total = 0
	}
	l.state.QuestionID = questionID
	l.state.PageNum = page
	l.state.Loading = true
	l.state.Error = ""
	l.seq++
	seq := l.seq
	gen := l.writeGen
	l.mu.Unlock()
	l.changed()

	// Loads only share a fetch that started after the latest submission write.
	key := fmt.Sprintf("%d:%d:%d", questionID, page, gen)
	start := time.Now()
	v, err, shared := l.group.Do(key, func() (interface{}, error) {
		return l.query.ListSubmissions(ctx, questionID, page, l.pageSize)
	})
	metrics.RemoteCallDuration.WithLabelValues("list_submissions").Observe(time.Since(start).Seconds())

	l.mu.Lock()
	if l.state.QuestionID != questionID || l.state.PageNum != page || seq <= l.appliedSeq {
		l.mu.Unlock()
		metrics.StaleResponses.WithLabelValues("log").Inc()
		l.logger.Debug("Discarding stale submission page",
			zap.Int64("question_id", questionID),
			zap.Int("page", page),
		)
		return nil
	}
	l.appliedSeq = seq
	l.state.Loading = seq != l.seq
	if err != nil {
		l.state.Error = err.Error()
		l.mu.Unlock()
		l.logger.Error("Failed to load submissions",
			zap.Int64("question_id", questionID),
			zap.Int("page", page),
			zap.Error(err),
		)
		l.bus.Publish(eventbus.NoticePosted, domain.Notice{
			Level:   domain.NoticeError,
			Message: "failed to load submissions: " + err.Error(),
			Time:    time.Now().UTC(),
		})
		l.changed()
		return fmt.Errorf("list submissions: %w", err)
	}
	res := v.(*domain.SubmissionPage)
	l.state.Records = append([]domain.SubmissionRecord{}, res.Records...)
	l.state.Total = res.Total
	l.mu.Unlock()

	l.logger.Debug("Loaded submissions",
		zap.Int64("question_id", questionID),
		zap.Int("page", page),
		zap.Int("count", len(res.Records)),
		zap.Bool("shared", shared),
	)
	l.changed()
	return nil
}

// Reload refetches the current page.
func (l *SubmissionLog) Reload(ctx context.Context) error {
	s := l.State()
	if s.QuestionID == 0 {
		return nil
	}
	return l.Load(ctx, s.QuestionID, s.PageNum)
}

// LoadAsync runs Load on a tracked background goroutine.
func (l *SubmissionLog) LoadAsync(questionID int64, page int) {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		_ = l.Load(l.ctx, questionID, page)
	}()
}

// Wait blocks until background loads settle.
func (l *SubmissionLog) Wait() {
	l.wg.Wait()
}

// Close cancels background loads and waits for them.
func (l *SubmissionLog) Close() {
	l.cancel()
	l.wg.Wait()
}

func (l *SubmissionLog) handleSubmissionEvent(ev eventbus.Event) {
	payload, ok := ev.Payload.(eventbus.SubmissionEvent)
	if !ok {
		return
	}
	l.mu.Lock()
	l.writeGen++
	relevant := l.active && l.state.QuestionID == payload.QuestionID
	page := l.state.PageNum
	l.mu.Unlock()
	if !relevant {
		return
	}
	l.LoadAsync(payload.QuestionID, page)
}

func (l *SubmissionLog) changed() {
	l.mu.Lock()
	fn := l.onChange
	l.mu.Unlock()
	if fn != nil {
		fn()
	}
}
