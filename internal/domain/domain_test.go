package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestParseTab(t *testing.T) {
	for raw, want := range map[string]Tab{"content": TabContent, "ANSWER": TabAnswer, " log ": TabLog} {
		got, ok := ParseTab(raw)
		if !ok || got != want {
			t.Errorf("ParseTab(%q) = %v, %v", raw, got, ok)
		}
	}
	if _, ok := ParseTab("comments"); ok {
		t.Error("expected unknown tab to be rejected")
	}
}

func TestParseConsoleTab_AcceptsNumericKeys(t *testing.T) {
	if tab, ok := ParseConsoleTab("2"); !ok || tab != ConsoleOutput {
		t.Errorf("expected output, got %v %v", tab, ok)
	}
	if tab, ok := ParseConsoleTab("input"); !ok || tab != ConsoleInput {
		t.Errorf("expected input, got %v %v", tab, ok)
	}
}

func TestSubmissionStatus_IsTerminal(t *testing.T) {
	tests := map[SubmissionStatus]bool{
		SubmissionPending:     false,
		SubmissionJudging:     false,
		SubmissionWrongAnswer: true,
		SubmissionAccepted:    true,
	}
	for s, want := range tests {
		if s.IsTerminal() != want {
			t.Errorf("%s.IsTerminal() = %v, want %v", s, !want, want)
		}
	}
}

func TestComputeLayout(t *testing.T) {
	if l := ComputeLayout(600, 150, false); l.EditorHeight != 600 || l.ConsoleHeight != 0 {
		t.Errorf("unexpected closed layout %+v", l)
	}
	if l := ComputeLayout(600, 150, true); l.EditorHeight != 450 || l.ConsoleHeight != 150 {
		t.Errorf("unexpected open layout %+v", l)
	}
	if l := ComputeLayout(100, 150, true); l.EditorHeight != 0 || l.ConsoleHeight != 100 {
		t.Errorf("expected console clamped to pane, got %+v", l)
	}
}

func TestEditorBuffer_Pristine(t *testing.T) {
	b := NewEditorBuffer(LangJava)
	if !b.Pristine() {
		t.Error("expected new buffer to be pristine")
	}
	b.Code += "// edit"
	if b.Pristine() {
		t.Error("expected edited buffer not to be pristine")
	}
	for _, l := range Languages() {
		if l.Template() == "" {
			t.Errorf("expected a template for %s", l)
		}
	}
}

func TestJudgeInfo_ShowsMismatch(t *testing.T) {
	if !(JudgeInfo{Status: "Wrong Answer"}).ShowsMismatch() {
		t.Error("expected wrong answer to show mismatch")
	}
	if (JudgeInfo{Status: JudgeInfoAccepted}).ShowsMismatch() {
		t.Error("expected accepted not to show mismatch")
	}
}

func TestSubmissionRecord_UnmarshalCreateTime(t *testing.T) {
	var a SubmissionRecord
	if err := json.Unmarshal([]byte(`{"id":1,"status":3,"createTime":1700000000000}`), &a); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !a.CreateTime.Equal(time.UnixMilli(1700000000000)) || a.Status != SubmissionAccepted {
		t.Errorf("unexpected record %+v", a)
	}

	var b SubmissionRecord
	if err := json.Unmarshal([]byte(`{"id":2,"createTime":"2024-05-01T10:00:00Z","judgeInfo":{"pass":1,"total":2}}`), &b); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.CreateTime.Year() != 2024 || b.JudgeInfo.Total != 2 {
		t.Errorf("unexpected record %+v", b)
	}

	var c SubmissionRecord
	if err := json.Unmarshal([]byte(`{"id":3,"createTime":"yesterday"}`), &c); err == nil {
		t.Error("expected error for malformed createTime")
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{ErrJudgeUnavailable, true},
		{&RemoteError{Op: "run", Err: errors.New("dial tcp: refused")}, true},
		{&RemoteError{Op: "run", HTTPStatus: 502}, true},
		{&RemoteError{Op: "run", HTTPStatus: 200, Code: 40000, Message: "bad request"}, false},
		{ErrQuestionNotFound, false},
	}
	for _, tt := range tests {
		if got := IsTransient(tt.err); got != tt.want {
			t.Errorf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestQuestion_DifficultyLevel(t *testing.T) {
	cases := map[string]string{
		"easy":   DifficultyEasy,
		" Hard ": DifficultyHard,
		"简单":     DifficultyEasy,
		"中等":     DifficultyMedium,
		"困难":     DifficultyHard,
		"":       DifficultyUnknown,
	}
	for raw, want := range cases {
		if got := (Question{Difficulty: raw}).DifficultyLevel(); got != want {
			t.Errorf("DifficultyLevel(%q) = %q, want %q", raw, got, want)
		}
	}
}
