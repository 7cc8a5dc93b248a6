package usecase

import (
	"github.com/C021025/DSASimulator-OJ/internal/domain"
	"github.com/C021025/DSASimulator-OJ/internal/navigation"
)

// InspectionState is the submission viewer overlay.
type InspectionState struct {
	SubmissionID int64                    `json:"submissionId,omitempty"`
	Record       *domain.SubmissionRecord `json:"record,omitempty"`
	Loading      bool                     `json:"loading"`
	NotFound     bool                     `json:"notFound"`
	Polling      bool                     `json:"polling"`
	Error        string                   `json:"error,omitempty"`
}

// Snapshot is an immutable copy of the whole page state.
type Snapshot struct {
	QuestionID       int64            `json:"questionId"`
	Question         *domain.Question `json:"question,omitempty"`
	Difficulty       string           `json:"difficulty,omitempty"`
	QuestionLoading  bool             `json:"questionLoading"`
	QuestionNotFound bool             `json:"questionNotFound"`
	User             *domain.User     `json:"user,omitempty"`

	Nav        navigation.NavState `json:"nav"`
	Query      string              `json:"query"`
	View       domain.ViewState    `json:"view"`
	RightPanel domain.RightPanel   `json:"rightPanel"`
	Layout     domain.Layout       `json:"layout"`

	Buffer        domain.EditorBuffer `json:"buffer"`
	ConsoleInput  string              `json:"consoleInput"`
	RunResult     *domain.RunResult   `json:"runResult,omitempty"`
	RunLoading    bool                `json:"runLoading"`
	SubmitLoading bool                `json:"submitLoading"`

	Inspection InspectionState `json:"inspection"`
	Log        LogListState    `json:"log"`

	CanRun        bool `json:"canRun"`
	CanSubmit     bool `json:"canSubmit"`
	LogTabEnabled bool `json:"logTabEnabled"`

	Notices []domain.Notice `json:"notices"`
}

// snapshotLocked must be called with w.mu held.
func (w *Workbench) snapshotLocked() Snapshot {
	s := Snapshot{
		QuestionID:       w.opts.QuestionID,
		QuestionLoading:  w.questionLoading,
		QuestionNotFound: w.questionNotFound,
		Nav:              w.nav,
		Query:            navigation.Encode(w.nav),
		View:             w.view,
		RightPanel:       w.view.RightPanel(),
		Layout:           domain.ComputeLayout(w.opts.PaneHeight, w.opts.ConsoleHeight, w.view.ConsoleOpen),
		Buffer:           w.buffer,
		ConsoleInput:     w.consoleInput,
		RunLoading:       w.runLoading,
		SubmitLoading:    w.submitLoading,
		Inspection:       w.inspection,
		Log:              w.log.State(),
		LogTabEnabled:    w.opts.User != nil,
		Notices:          append([]domain.Notice(nil), w.notices...),
	}
	if w.question != nil {
		q := *w.question
		s.Question = &q
		s.Difficulty = q.DifficultyLevel()
	}
	if w.opts.User != nil {
		u := *w.opts.User
		s.User = &u
	}
	if w.runResult != nil {
		r := *w.runResult
		s.RunResult = &r
	}
	if w.inspection.Record != nil {
		rec := *w.inspection.Record
		s.Inspection.Record = &rec
	}
	actionable := w.actionErrLocked() == nil
	s.CanRun = actionable && !w.runLoading
	s.CanSubmit = actionable && !w.submitLoading
	return s
}
