package navigation

import (
	"net/url"
	"testing"

	"github.com/C021025/DSASimulator-OJ/internal/domain"
)

func TestEncode_OmitsTargetWhenNotInspecting(t *testing.T) {
	got := Encode(NavState{Tab: domain.TabAnswer, PageNum: 3})
	v, err := url.ParseQuery(got)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Get(KeyTab) != "answer" {
		t.Errorf("expected tab answer, got %q", v.Get(KeyTab))
	}
	if v.Get(KeyPageNum) != "3" {
		t.Errorf("expected pageNum 3, got %q", v.Get(KeyPageNum))
	}
	if _, ok := v[KeyTargetSubmitID]; ok {
		t.Errorf("expected no targetSubmitId key, got %q", got)
	}
}

func TestEncode_WritesTarget(t *testing.T) {
	got := Encode(NavState{Tab: domain.TabLog, TargetSubmitID: 42, PageNum: 2})
	want := "pageNum=2&tab=log&targetSubmitId=42"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestDecode_Defaults(t *testing.T) {
	cases := []string{
		"",
		"?",
		"tab=bogus&targetSubmitId=abc&pageNum=zero",
		"targetSubmitId=-4&pageNum=-1",
		"pageNum=0",
	}
	for _, q := range cases {
		got := Decode(q)
		if got != Default() {
			t.Errorf("Decode(%q) = %+v, expected defaults", q, got)
		}
	}
}

func TestDecode_LeadingQuestionMark(t *testing.T) {
	got := Decode("?tab=log&targetSubmitId=42&pageNum=2")
	want := NavState{Tab: domain.TabLog, TargetSubmitID: 42, PageNum: 2}
	if got != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}
}

func TestDecode_IgnoresUnknownKeys(t *testing.T) {
	got := Decode("foo=bar&tab=answer")
	want := NavState{Tab: domain.TabAnswer, PageNum: 1}
	if got != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}
}

func TestRoundTrip(t *testing.T) {
	tabs := []domain.Tab{domain.TabContent, domain.TabAnswer, domain.TabLog}
	ids := []int64{0, 1, 77, 1 << 40}
	pages := []int{1, 2, 99}

	for _, tab := range tabs {
		for _, id := range ids {
			for _, page := range pages {
				s := NavState{Tab: tab, TargetSubmitID: id, PageNum: page}
				if got := Decode(Encode(s)); got != s {
					t.Errorf("round trip of %+v gave %+v", s, got)
				}
			}
		}
	}
}

// Closing an inspection from page 2 of the log keeps the tab and page.
func TestCloseInspectionScenario(t *testing.T) {
	s := Decode("?tab=log&targetSubmitId=42&pageNum=2")
	closed := s.WithTarget(0)

	got := Encode(closed)
	if got != "pageNum=2&tab=log" {
		t.Errorf("expected pageNum=2&tab=log, got %q", got)
	}
	if Decode(got).Inspecting() {
		t.Error("expected decoded state not to be inspecting")
	}
}

func TestWithTab_ClearsInspection(t *testing.T) {
	s := NavState{Tab: domain.TabLog, TargetSubmitID: 9, PageNum: 4}.WithTab(domain.TabContent)
	if s.TargetSubmitID != 0 {
		t.Errorf("expected inspection cleared, got %d", s.TargetSubmitID)
	}
	if s.PageNum != 4 {
		t.Errorf("expected page preserved, got %d", s.PageNum)
	}
}

func TestNormalize(t *testing.T) {
	s := NavState{Tab: domain.Tab(9), TargetSubmitID: -1, PageNum: 0}.Normalize()
	if s != Default() {
		t.Errorf("expected defaults, got %+v", s)
	}
}
