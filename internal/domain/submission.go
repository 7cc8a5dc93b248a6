package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// SubmissionStatus is the judging lifecycle state of a submission.
type SubmissionStatus int

const (
	SubmissionPending     SubmissionStatus = 0
	SubmissionJudging     SubmissionStatus = 1
	SubmissionWrongAnswer SubmissionStatus = 2
	SubmissionAccepted    SubmissionStatus = 3
)

// IsTerminal returns true if the status will not change anymore.
func (s SubmissionStatus) IsTerminal() bool {
	switch s {
	case SubmissionWrongAnswer, SubmissionAccepted:
		return true
	}
	return false
}

func (s SubmissionStatus) String() string {
	switch s {
	case SubmissionPending:
		return "pending"
	case SubmissionJudging:
		return "judging"
	case SubmissionWrongAnswer:
		return "wrong_answer"
	case SubmissionAccepted:
		return "accepted"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Judge info verdicts reported by the judge for a single test run.
const (
	JudgeInfoAccepted     = "Accepted"
	JudgeInfoWrongAnswer  = "Wrong Answer"
	JudgeInfoCompileError = "Compile Error"
)

// JudgeInfo is the per-submission verdict detail produced by the judge.
type JudgeInfo struct {
	Pass           int    `json:"pass"`
	Total          int    `json:"total"`
	Time           *int64 `json:"time,omitempty"`
	Memory         *int64 `json:"memory,omitempty"`
	Status         string `json:"status,omitempty"`
	Message        string `json:"message,omitempty"`
	Input          string `json:"input,omitempty"`
	ExpectedOutput string `json:"expectedOutput,omitempty"`
	Output         string `json:"output,omitempty"`
}

// ShowsMismatch reports whether the viewer should render input/expected/actual output.
func (j JudgeInfo) ShowsMismatch() bool {
	return strings.EqualFold(j.Status, JudgeInfoWrongAnswer)
}

// SubmissionRecord is an immutable snapshot of a graded submission.
type SubmissionRecord struct {
	ID         int64            `json:"id"`
	QuestionID int64            `json:"questionId"`
	UserID     int64            `json:"userId,omitempty"`
	Status     SubmissionStatus `json:"status"`
	Language   Language         `json:"language"`
	Code       string           `json:"code"`
	JudgeInfo  JudgeInfo        `json:"judgeInfo"`
	CreateTime time.Time        `json:"createTime"`
}

// SubmissionHandle is returned by the judge after a successful submit.
type SubmissionHandle struct {
	ID int64 `json:"id"`
}

// SubmissionPage is one page of a question's submission log.
type SubmissionPage struct {
	Records []SubmissionRecord `json:"records"`
	Total   int64              `json:"total"`
}

// RunRequest carries an ad hoc execution against user-supplied input.
type RunRequest struct {
	Code     string   `json:"code"`
	Language Language `json:"language"`
	Input    string   `json:"input"`
}

// SubmitRequest carries a graded submission for a question.
type SubmitRequest struct {
	Code       string   `json:"code"`
	Language   Language `json:"language"`
	QuestionID int64    `json:"questionId"`
}

// RunResult is the output of an ad hoc run. BufferVersion pins it to the code that produced it.
type RunResult struct {
	Input         string `json:"input"`
	Output        string `json:"output"`
	BufferVersion uint64 `json:"bufferVersion"`
}

// Question is the subset of question data the detail page renders.
type Question struct {
	ID          int64    `json:"id"`
	Title       string   `json:"title"`
	Content     string   `json:"content"`
	Answer      string   `json:"answer"`
	Difficulty  string   `json:"difficulty"`
	Tags        []string `json:"tags"`
	SubmitNum   int64    `json:"submitNum"`
	AcceptedNum int64    `json:"acceptedNum"`
}

// AcceptanceRate returns the accepted percentage, 0 when nothing was submitted.
func (q Question) AcceptanceRate() float64 {
	if q.SubmitNum == 0 {
		return 0
	}
	return 100 * float64(q.AcceptedNum) / float64(q.SubmitNum)
}

// Difficulty levels. The backend stores either these or the Chinese labels.
const (
	DifficultyEasy    = "easy"
	DifficultyMedium  = "medium"
	DifficultyHard    = "hard"
	DifficultyUnknown = "unknown"
)

// DifficultyLevel normalises the stored difficulty to a level name.
func (q Question) DifficultyLevel() string {
	switch strings.ToLower(strings.TrimSpace(q.Difficulty)) {
	case DifficultyEasy, "简单":
		return DifficultyEasy
	case DifficultyMedium, "中等":
		return DifficultyMedium
	case DifficultyHard, "困难":
		return DifficultyHard
	}
	return DifficultyUnknown
}

// User is the signed-in account. A nil *User means anonymous.
type User struct {
	ID   int64  `json:"id"`
	Name string `json:"userName"`
	Role string `json:"userRole,omitempty"`
}

// UnmarshalJSON accepts createTime as RFC3339 or epoch milliseconds.
func (r *SubmissionRecord) UnmarshalJSON(data []byte) error {
	type alias SubmissionRecord
	aux := struct {
		*alias
		CreateTime json.RawMessage `json:"createTime"`
	}{alias: (*alias)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if len(aux.CreateTime) == 0 || string(aux.CreateTime) == "null" {
		r.CreateTime = time.Time{}
		return nil
	}
	var ms int64
	if err := json.Unmarshal(aux.CreateTime, &ms); err == nil {
		r.CreateTime = time.UnixMilli(ms).UTC()
		return nil
	}
	var s string
	if err := json.Unmarshal(aux.CreateTime, &s); err != nil {
		return fmt.Errorf("submission createTime: %w", err)
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return fmt.Errorf("submission createTime: %w", err)
	}
	r.CreateTime = t
	return nil
}
