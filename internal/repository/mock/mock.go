package mock

import (
	"context"
	"sync"

	"github.com/C021025/DSASimulator-OJ/internal/domain"
	"github.com/C021025/DSASimulator-OJ/internal/repository"
)

// ---- JudgeService mock ----

var _ repository.JudgeService = (*JudgeService)(nil)

// JudgeService is a test double for repository.JudgeService.
type JudgeService struct {
	mu sync.Mutex

	RunFn    func(ctx context.Context, req *domain.RunRequest) (*domain.RunResult, error)
	SubmitFn func(ctx context.Context, req *domain.SubmitRequest) (*domain.SubmissionHandle, error)

	// Recorded calls for assertions.
	RunCalls    []domain.RunRequest
	SubmitCalls []domain.SubmitRequest
}

func (m *JudgeService) Run(ctx context.Context, req *domain.RunRequest) (*domain.RunResult, error) {
	m.mu.Lock()
	m.RunCalls = append(m.RunCalls, *req)
	m.mu.Unlock()
	if m.RunFn != nil {
		return m.RunFn(ctx, req)
	}
	return &domain.RunResult{Input: req.Input, Output: req.Input}, nil
}

func (m *JudgeService) Submit(ctx context.Context, req *domain.SubmitRequest) (*domain.SubmissionHandle, error) {
	m.mu.Lock()
	m.SubmitCalls = append(m.SubmitCalls, *req)
	n := int64(len(m.SubmitCalls))
	m.mu.Unlock()
	if m.SubmitFn != nil {
		return m.SubmitFn(ctx, req)
	}
	return &domain.SubmissionHandle{ID: n}, nil
}

// RunCount returns the number of Run calls so far.
func (m *JudgeService) RunCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.RunCalls)
}

// SubmitCount returns the number of Submit calls so far.
func (m *JudgeService) SubmitCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.SubmitCalls)
}

// ---- SubmissionQuery mock ----

var _ repository.SubmissionQuery = (*SubmissionQuery)(nil)

// SubmissionQuery is an in-memory test double for repository.SubmissionQuery.
type SubmissionQuery struct {
	mu      sync.Mutex
	records map[int64]*domain.SubmissionRecord

	GetFn  func(ctx context.Context, id int64) (*domain.SubmissionRecord, error)
	ListFn func(ctx context.Context, questionID int64, page, pageSize int) (*domain.SubmissionPage, error)

	GetCalls  []int64
	ListCalls []ListCall
}

// ListCall records one ListSubmissions invocation.
type ListCall struct {
	QuestionID int64
	Page       int
	PageSize   int
}

// NewSubmissionQuery creates an empty query mock.
func NewSubmissionQuery() *SubmissionQuery {
	return &SubmissionQuery{records: make(map[int64]*domain.SubmissionRecord)}
}

// Put stores rec for the default Get and List behaviour.
func (m *SubmissionQuery) Put(rec *domain.SubmissionRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *rec
	m.records[rec.ID] = &cp
}

func (m *SubmissionQuery) GetSubmission(ctx context.Context, id int64) (*domain.SubmissionRecord, error) {
	m.mu.Lock()
	m.GetCalls = append(m.GetCalls, id)
	m.mu.Unlock()
	if m.GetFn != nil {
		return m.GetFn(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return nil, domain.ErrSubmissionNotFound
	}
	cp := *rec
	return &cp, nil
}

func (m *SubmissionQuery) ListSubmissions(ctx context.Context, questionID int64, page, pageSize int) (*domain.SubmissionPage, error) {
	m.mu.Lock()
	m.ListCalls = append(m.ListCalls, ListCall{QuestionID: questionID, Page: page, PageSize: pageSize})
	m.mu.Unlock()
	if m.ListFn != nil {
		return m.ListFn(ctx, questionID, page, pageSize)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []domain.SubmissionRecord
	for _, rec := range m.records {
		if rec.QuestionID == questionID {
			matched = append(matched, *rec)
		}
	}
	// Newest first.
	for i := 1; i < len(matched); i++ {
		for j := i; j > 0 && matched[j].ID > matched[j-1].ID; j-- {
			matched[j], matched[j-1] = matched[j-1], matched[j]
		}
	}
	out := &domain.SubmissionPage{Total: int64(len(matched)), Records: []domain.SubmissionRecord{}}
	start := (page - 1) * pageSize
	if start < 0 || start >= len(matched) {
		return out, nil
	}
	end := start + pageSize
	if end > len(matched) {
		end = len(matched)
	}
	out.Records = append(out.Records, matched[start:end]...)
	return out, nil
}

// GetCount returns the number of GetSubmission calls so far.
func (m *SubmissionQuery) GetCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.GetCalls)
}

// ListCount returns the number of ListSubmissions calls so far.
func (m *SubmissionQuery) ListCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.ListCalls)
}

// ---- QuestionService mock ----

var _ repository.QuestionService = (*QuestionService)(nil)

// QuestionService is a test double for repository.QuestionService.
type QuestionService struct {
	mu sync.Mutex

	GetFn func(ctx context.Context, id int64) (*domain.Question, error)

	GetCalls []int64
}

func (m *QuestionService) GetQuestion(ctx context.Context, id int64) (*domain.Question, error) {
	m.mu.Lock()
	m.GetCalls = append(m.GetCalls, id)
	m.mu.Unlock()
	if m.GetFn != nil {
		return m.GetFn(ctx, id)
	}
	return &domain.Question{
		ID:         id,
		Title:      "A + B",
		Content:    "Read two integers and print their sum.",
		Answer:     "print(sum(map(int, input().split())))",
		Difficulty: "easy",
		Tags:       []string{"math"},
	}, nil
}

// ---- SubmissionCache mock ----

var _ repository.SubmissionCache = (*SubmissionCache)(nil)

// SubmissionCache is an in-memory test double for repository.SubmissionCache.
type SubmissionCache struct {
	mu      sync.Mutex
	records map[int64]domain.SubmissionRecord

	GetFn func(ctx context.Context, id int64) (*domain.SubmissionRecord, bool, error)
	SetFn func(ctx context.Context, rec *domain.SubmissionRecord) error

	SetCalls []int64
}

// NewSubmissionCache creates an empty cache mock.
func NewSubmissionCache() *SubmissionCache {
	return &SubmissionCache{records: make(map[int64]domain.SubmissionRecord)}
}

func (m *SubmissionCache) Get(ctx context.Context, id int64) (*domain.SubmissionRecord, bool, error) {
	if m.GetFn != nil {
		return m.GetFn(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return nil, false, nil
	}
	return &rec, true, nil
}

func (m *SubmissionCache) Set(ctx context.Context, rec *domain.SubmissionRecord) error {
	m.mu.Lock()
	m.SetCalls = append(m.SetCalls, rec.ID)
	m.mu.Unlock()
	if m.SetFn != nil {
		return m.SetFn(ctx, rec)
	}
	if !rec.Status.IsTerminal() {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.ID] = *rec
	return nil
}
