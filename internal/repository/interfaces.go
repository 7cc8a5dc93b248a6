package repository

import (
	"context"

	"github.com/C021025/DSASimulator-OJ/internal/domain"
)

// JudgeService executes code on behalf of the workbench.
type JudgeService interface {
	// Run executes code against input without grading it.
	Run(ctx context.Context, req *domain.RunRequest) (*domain.RunResult, error)

	// Submit queues code for grading against a question's test cases.
	Submit(ctx context.Context, req *domain.SubmitRequest) (*domain.SubmissionHandle, error)
}

// SubmissionQuery reads graded submissions.
type SubmissionQuery interface {
	// GetSubmission returns a single submission. Unknown ids yield domain.ErrSubmissionNotFound.
	GetSubmission(ctx context.Context, id int64) (*domain.SubmissionRecord, error)

	// ListSubmissions returns one page of a question's submissions, newest first.
	ListSubmissions(ctx context.Context, questionID int64, page, pageSize int) (*domain.SubmissionPage, error)
}

// QuestionService loads question content.
type QuestionService interface {
	// GetQuestion returns the question. Unknown ids yield domain.ErrQuestionNotFound.
	GetQuestion(ctx context.Context, id int64) (*domain.Question, error)
}

// SubmissionCache stores submissions whose verdict is final.
type SubmissionCache interface {
	// Get returns the cached record, or ok=false on a miss.
	Get(ctx context.Context, id int64) (rec *domain.SubmissionRecord, ok bool, err error)

	// Set stores a terminal record. Non-terminal records are ignored.
	Set(ctx context.Context, rec *domain.SubmissionRecord) error
}
