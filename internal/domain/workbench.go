package domain

import (
	"fmt"
	"strings"
	"time"
)

// Tab is the left-panel selection of the question detail page.
type Tab int

const (
	TabContent Tab = iota
	TabAnswer
	TabLog
)

func (t Tab) String() string {
	switch t {
	case TabContent:
		return "content"
	case TabAnswer:
		return "answer"
	case TabLog:
		return "log"
	}
	return fmt.Sprintf("tab(%d)", int(t))
}

// ParseTab maps a wire value to a Tab. ok is false for unknown values.
func ParseTab(raw string) (Tab, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "content":
		return TabContent, true
	case "answer":
		return TabAnswer, true
	case "log":
		return TabLog, true
	}
	return TabContent, false
}

func (t Tab) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *Tab) UnmarshalText(b []byte) error {
	parsed, ok := ParseTab(string(b))
	if !ok {
		return fmt.Errorf("unknown tab %q", string(b))
	}
	*t = parsed
	return nil
}

// ConsoleTab is the console pane selection.
type ConsoleTab int

const (
	ConsoleInput ConsoleTab = iota
	ConsoleOutput
)

func (c ConsoleTab) String() string {
	switch c {
	case ConsoleInput:
		return "input"
	case ConsoleOutput:
		return "output"
	}
	return fmt.Sprintf("console(%d)", int(c))
}

// ParseConsoleTab maps a wire value to a ConsoleTab.
func ParseConsoleTab(raw string) (ConsoleTab, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "input", "1":
		return ConsoleInput, true
	case "output", "2":
		return ConsoleOutput, true
	}
	return ConsoleInput, false
}

func (c ConsoleTab) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *ConsoleTab) UnmarshalText(b []byte) error {
	parsed, ok := ParseConsoleTab(string(b))
	if !ok {
		return fmt.Errorf("unknown console tab %q", string(b))
	}
	*c = parsed
	return nil
}

// RightPanel is which view occupies the right half of the page.
type RightPanel int

const (
	PanelEditing RightPanel = iota
	PanelInspecting
)

func (p RightPanel) String() string {
	if p == PanelInspecting {
		return "inspecting"
	}
	return "editing"
}

func (p RightPanel) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Language is a supported submission language.
type Language string

const (
	LangJava   Language = "java"
	LangCpp    Language = "cpp"
	LangPython Language = "python"
	LangGo     Language = "go"
)

var languageTemplates = map[Language]string{
	LangJava:   "public class Main {\n\tpublic static void main(String[] args) {\n\t\t\n\t}\n}",
	LangCpp:    "#include <iostream>\nusing namespace std;\n\nint main() {\n\t\n\treturn 0;\n}",
	LangPython: "import sys\n\n\ndef main():\n    pass\n\n\nif __name__ == \"__main__\":\n    main()\n",
	LangGo:     "package main\n\nimport \"fmt\"\n\nfunc main() {\n\tfmt.Println()\n}",
}

// Languages returns the supported languages in display order.
func Languages() []Language {
	return []Language{LangJava, LangCpp, LangPython, LangGo}
}

// IsValid checks if the language is supported.
func (l Language) IsValid() bool {
	_, ok := languageTemplates[l]
	return ok
}

// Template returns the starter code for the language.
func (l Language) Template() string {
	return languageTemplates[l]
}

// Label is the human readable language name.
func (l Language) Label() string {
	switch l {
	case LangJava:
		return "Java"
	case LangCpp:
		return "C++"
	case LangPython:
		return "Python"
	case LangGo:
		return "Go"
	}
	return "Other"
}

// ViewState is the navigational and presentational state of the page.
type ViewState struct {
	ActiveTab             Tab        `json:"activeTab"`
	InspectedSubmissionID int64      `json:"inspectedSubmissionId,omitempty"`
	ConsoleOpen           bool       `json:"consoleOpen"`
	ActiveConsoleTab      ConsoleTab `json:"activeConsoleTab"`
}

// Inspecting reports whether a past submission occupies the right panel.
func (v ViewState) Inspecting() bool {
	return v.InspectedSubmissionID > 0
}

// RightPanel derives the right-panel view. Inspecting and editing are mutually exclusive.
func (v ViewState) RightPanel() RightPanel {
	if v.Inspecting() {
		return PanelInspecting
	}
	return PanelEditing
}

// EditorBuffer is the code being composed. Version changes on every mutation.
type EditorBuffer struct {
	Code     string   `json:"code"`
	Language Language `json:"language"`
	Version  uint64   `json:"version"`
}

// NewEditorBuffer returns a buffer holding the language template.
func NewEditorBuffer(lang Language) EditorBuffer {
	return EditorBuffer{Code: lang.Template(), Language: lang, Version: 1}
}

// Pristine reports whether the buffer still holds its language template.
func (b EditorBuffer) Pristine() bool {
	return b.Code == b.Language.Template()
}

// Layout holds the complementary heights of the editor and console panes.
type Layout struct {
	EditorHeight  int `json:"editorHeight"`
	ConsoleHeight int `json:"consoleHeight"`
}

// ComputeLayout splits paneHeight between editor and console.
func ComputeLayout(paneHeight, consoleHeight int, consoleOpen bool) Layout {
	if !consoleOpen || consoleHeight <= 0 {
		return Layout{EditorHeight: paneHeight}
	}
	if consoleHeight > paneHeight {
		consoleHeight = paneHeight
	}
	return Layout{EditorHeight: paneHeight - consoleHeight, ConsoleHeight: consoleHeight}
}

// NoticeLevel is the severity of a user-visible notification.
type NoticeLevel string

const (
	NoticeInfo  NoticeLevel = "info"
	NoticeError NoticeLevel = "error"
)

// Notice is a non-blocking notification shown to the user.
type Notice struct {
	Level   NoticeLevel `json:"level"`
	Message string      `json:"message"`
	Time    time.Time   `json:"time"`
}
