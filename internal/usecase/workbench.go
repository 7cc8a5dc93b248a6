package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/C021025/DSASimulator-OJ/internal/domain"
	"github.com/C021025/DSASimulator-OJ/internal/eventbus"
	"github.com/C021025/DSASimulator-OJ/internal/metrics"
	"github.com/C021025/DSASimulator-OJ/internal/navigation"
	"github.com/C021025/DSASimulator-OJ/internal/repository"
)

const (
	defaultPollInterval    = time.Second
	defaultPollMaxAttempts = 60
	defaultPaneHeight      = 600
	defaultConsoleHeight   = 150
	maxNotices             = 20
)

// Options configures a Workbench for one question page visit.
type Options struct {
	QuestionID      int64
	User            *domain.User
	Language        domain.Language
	PageSize        int
	PaneHeight      int
	ConsoleHeight   int
	PollInterval    time.Duration
	PollMaxAttempts int
}

func (o Options) withDefaults() Options {
	if !o.Language.IsValid() {
		o.Language = domain.LangJava
	}
	if o.PageSize <= 0 {
		o.PageSize = DefaultPageSize
	}
	if o.PaneHeight <= 0 {
		o.PaneHeight = defaultPaneHeight
	}
	if o.ConsoleHeight <= 0 {
		o.ConsoleHeight = defaultConsoleHeight
	}
	if o.PollInterval <= 0 {
		o.PollInterval = defaultPollInterval
	}
	if o.PollMaxAttempts <= 0 {
		o.PollMaxAttempts = defaultPollMaxAttempts
	}
	return o
}

// Workbench coordinates the question detail page: view state, navigation,
// run/submit actions, the submission viewer and the submission log.
type Workbench struct {
	judge     repository.JudgeService
	query     repository.SubmissionQuery
	questions repository.QuestionService
	history   *navigation.History
	bus       *eventbus.Bus
	log       *SubmissionLog
	logger    *zap.Logger
	opts      Options

	mu               sync.Mutex
	question         *domain.Question
	questionLoading  bool
	questionNotFound bool
	nav              navigation.NavState
	navApplied       bool
	view             domain.ViewState
	buffer           domain.EditorBuffer
	consoleInput     string
	runResult        *domain.RunResult
	runLoading       bool
	submitLoading    bool
	inspection       InspectionState
	inspectGen       uint64
	inspectCancel    context.CancelFunc
	notices          []domain.Notice
	closed           bool

	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	unsubscribe func()
}

// NewWorkbench wires a workbench to its collaborators and starts listening to
// history. Call Open to load the question and apply the current location.
func NewWorkbench(
	judge repository.JudgeService,
	query repository.SubmissionQuery,
	questions repository.QuestionService,
	history *navigation.History,
	bus *eventbus.Bus,
	opts Options,
	logger *zap.Logger,
) *Workbench {
	opts = opts.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	w := &Workbench{
		judge:     judge,
		query:     query,
		questions: questions,
		history:   history,
		bus:       bus,
		logger:    logger.With(zap.Int64("question_id", opts.QuestionID)),
		opts:      opts,
		nav:       navigation.Default(),
		buffer:    domain.NewEditorBuffer(opts.Language),
		ctx:       ctx,
		cancel:    cancel,
	}
	w.log = NewSubmissionLog(query, bus, opts.PageSize, w.logger)
	w.log.OnPage(w.SetLogPage)
	w.log.OnChange(w.emit)

	bus.On(eventbus.NoticePosted, w.recordNotice)
	w.unsubscribe = history.Subscribe(w.ApplyNavigation)
	return w
}

// Log returns the submission log list owned by the workbench.
func (w *Workbench) Log() *SubmissionLog {
	return w.log
}

// History returns the location history the workbench follows.
func (w *Workbench) History() *navigation.History {
	return w.history
}

// Open loads the question and applies the current location.
func (w *Workbench) Open(ctx context.Context) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return context.Canceled
	}
	w.questionLoading = true
	w.mu.Unlock()
	w.emit()

	start := time.Now()
	q, err := w.questions.GetQuestion(ctx, w.opts.QuestionID)
	metrics.RemoteCallDuration.WithLabelValues("get_question").Observe(time.Since(start).Seconds())

	w.mu.Lock()
	w.questionLoading = false
	switch {
	case errors.Is(err, domain.ErrQuestionNotFound):
		w.questionNotFound = true
		w.question = nil
		w.cancelInspectionLocked()
		w.mu.Unlock()
		w.logger.Warn("Question not found")
		w.emit()
		return domain.ErrQuestionNotFound
	case err != nil:
		w.mu.Unlock()
		w.logger.Error("Failed to load question", zap.Error(err))
		w.postNotice(domain.NoticeError, "failed to load question: "+err.Error())
		w.emit()
		return fmt.Errorf("load question: %w", err)
	}
	w.question = q
	w.mu.Unlock()

	w.logger.Info("Question loaded", zap.String("title", q.Title))
	w.ApplyNavigation(w.history.Location())
	w.emit()
	return nil
}

// ApplyNavigation rehydrates the page from a query string. Applying the
// state that is already applied does nothing.
func (w *Workbench) ApplyNavigation(query string) {
	next := navigation.Decode(query)

	w.mu.Lock()
	if w.closed || w.questionNotFound {
		w.mu.Unlock()
		return
	}
	if next.Tab == domain.TabLog && w.opts.User == nil {
		next.Tab = domain.TabContent
	}
	if w.navApplied && next == w.nav {
		w.mu.Unlock()
		return
	}

	prev, hadPrev := w.nav, w.navApplied
	w.nav = next
	w.navApplied = true
	w.view.ActiveTab = next.Tab
	w.view.InspectedSubmissionID = next.TargetSubmitID

	var (
		inspectCtx context.Context
		gen        uint64
	)
	if !hadPrev || prev.TargetSubmitID != next.TargetSubmitID {
		w.cancelInspectionLocked()
		if next.Inspecting() {
			inspectCtx, gen = w.beginInspectionLocked(next.TargetSubmitID)
		}
	}

	logActive := next.Tab == domain.TabLog
	loadLog := logActive && (!hadPrev || prev.Tab != domain.TabLog || prev.PageNum != next.PageNum)
	w.mu.Unlock()

	w.logger.Debug("Navigation applied",
		zap.String("tab", next.Tab.String()),
		zap.Int64("target_submit_id", next.TargetSubmitID),
		zap.Int("page_num", next.PageNum),
	)

	w.log.SetActive(logActive)
	if inspectCtx != nil {
		w.wg.Add(1)
		go w.inspect(inspectCtx, gen, next.TargetSubmitID)
	}
	if loadLog {
		w.log.LoadAsync(w.opts.QuestionID, next.PageNum)
	}
	w.emit()
}

// SetActiveTab switches the left panel tab. Leaving for another tab closes
// any inspected submission. It returns false when nothing was done: the log
// tab is inert for anonymous users.
func (w *Workbench) SetActiveTab(tab domain.Tab) (bool, error) {
	if _, ok := domain.ParseTab(tab.String()); !ok {
		return false, nil
	}
	w.mu.Lock()
	if err := w.guardLocked(); err != nil {
		w.mu.Unlock()
		return false, err
	}
	if tab == domain.TabLog && w.opts.User == nil {
		w.mu.Unlock()
		return false, nil
	}
	next := w.nav.WithTab(tab)
	same := w.navApplied && next == w.nav
	w.mu.Unlock()

	if same {
		if tab == domain.TabLog {
			w.log.LoadAsync(w.opts.QuestionID, next.PageNum)
		}
		return true, nil
	}
	w.history.PushState(next)
	return true, nil
}

// InspectSubmission shows submission id in the right panel. id <= 0 closes the viewer.
func (w *Workbench) InspectSubmission(id int64) error {
	if id <= 0 {
		return w.CloseInspection()
	}
	w.mu.Lock()
	if err := w.guardLocked(); err != nil {
		w.mu.Unlock()
		return err
	}
	next := w.nav.WithTarget(id)
	same := w.navApplied && next == w.nav
	w.mu.Unlock()
	if !same {
		w.history.PushState(next)
	}
	return nil
}

// CloseInspection returns the right panel to the editor, keeping tab and page.
func (w *Workbench) CloseInspection() error {
	w.mu.Lock()
	if err := w.guardLocked(); err != nil {
		w.mu.Unlock()
		return err
	}
	if !w.nav.Inspecting() {
		w.mu.Unlock()
		return nil
	}
	w.cancelInspectionLocked()
	next := w.nav.WithTarget(0)
	w.mu.Unlock()
	w.history.PushState(next)
	return nil
}

// SetLogPage navigates the submission log to page n.
func (w *Workbench) SetLogPage(n int) {
	w.mu.Lock()
	if w.closed || w.questionNotFound {
		w.mu.Unlock()
		return
	}
	next := w.nav.WithPage(n)
	same := w.navApplied && next == w.nav
	w.mu.Unlock()
	if !same {
		w.history.PushState(next)
	}
}

// ToggleConsole opens or closes the console pane.
func (w *Workbench) ToggleConsole() bool {
	w.mu.Lock()
	w.view.ConsoleOpen = !w.view.ConsoleOpen
	open := w.view.ConsoleOpen
	w.mu.Unlock()
	w.emit()
	return open
}

// SelectConsoleTab switches the console between input and output.
func (w *Workbench) SelectConsoleTab(tab domain.ConsoleTab) error {
	if _, ok := domain.ParseConsoleTab(tab.String()); !ok {
		return fmt.Errorf("unknown console tab %d", int(tab))
	}
	w.mu.Lock()
	w.view.ActiveConsoleTab = tab
	w.mu.Unlock()
	w.emit()
	return nil
}

// SetConsoleInput replaces the custom run input.
func (w *Workbench) SetConsoleInput(text string) {
	w.mu.Lock()
	w.consoleInput = text
	w.mu.Unlock()
	w.emit()
}

// EditCode replaces the editor content.
func (w *Workbench) EditCode(code string) error {
	w.mu.Lock()
	if err := w.editableLocked(); err != nil {
		w.mu.Unlock()
		return err
	}
	if code == w.buffer.Code {
		w.mu.Unlock()
		return nil
	}
	w.buffer.Code = code
	w.bumpBufferLocked()
	w.mu.Unlock()
	w.emit()
	return nil
}

// SetLanguage switches the editor language. User edits are kept unless
// resetTemplate is set; an untouched template follows the new language.
func (w *Workbench) SetLanguage(lang domain.Language, resetTemplate bool) error {
	if !lang.IsValid() {
		return domain.ErrInvalidLanguage
	}
	w.mu.Lock()
	if err := w.editableLocked(); err != nil {
		w.mu.Unlock()
		return err
	}
	if lang == w.buffer.Language && !resetTemplate {
		w.mu.Unlock()
		return nil
	}
	pristine := w.buffer.Pristine()
	w.buffer.Language = lang
	if resetTemplate || pristine {
		w.buffer.Code = lang.Template()
	}
	w.bumpBufferLocked()
	w.mu.Unlock()
	w.emit()
	return nil
}

// Snapshot returns a copy of the page state.
func (w *Workbench) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshotLocked()
}

// Wait blocks until background fetches settle.
func (w *Workbench) Wait() {
	w.wg.Wait()
	w.log.Wait()
}

// Close cancels background work and detaches from history.
func (w *Workbench) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	w.cancelInspectionLocked()
	w.mu.Unlock()

	w.unsubscribe()
	w.cancel()
	w.log.Close()
	w.wg.Wait()
	w.logger.Debug("Workbench closed")
}

func (w *Workbench) guardLocked() error {
	if w.closed {
		return context.Canceled
	}
	if w.questionNotFound {
		return domain.ErrQuestionNotFound
	}
	return nil
}

func (w *Workbench) editableLocked() error {
	if err := w.guardLocked(); err != nil {
		return err
	}
	if w.view.Inspecting() {
		return domain.ErrInspecting
	}
	return nil
}

// actionErrLocked reports why run/submit are disabled, or nil.
func (w *Workbench) actionErrLocked() error {
	if err := w.guardLocked(); err != nil {
		return err
	}
	if w.question == nil {
		return domain.ErrQuestionNotLoaded
	}
	if w.opts.User == nil {
		return domain.ErrUnauthenticated
	}
	if w.view.Inspecting() {
		return domain.ErrInspecting
	}
	return nil
}

func (w *Workbench) bumpBufferLocked() {
	w.buffer.Version++
	w.runResult = nil
}

func (w *Workbench) emit() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	s := w.snapshotLocked()
	w.mu.Unlock()
	w.bus.Publish(eventbus.StateChanged, s)
}

func (w *Workbench) postNotice(level domain.NoticeLevel, msg string) {
	w.bus.Publish(eventbus.NoticePosted, domain.Notice{
		Level:   level,
		Message: msg,
		Time:    time.Now().UTC(),
	})
}

func (w *Workbench) recordNotice(ev eventbus.Event) {
	n, ok := ev.Payload.(domain.Notice)
	if !ok {
		return
	}
	w.mu.Lock()
	w.notices = append(w.notices, n)
	if len(w.notices) > maxNotices {
		w.notices = w.notices[len(w.notices)-maxNotices:]
	}
	w.mu.Unlock()
}
