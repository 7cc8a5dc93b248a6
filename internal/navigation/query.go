// Package navigation maps the question page's navigational state to and from
// the URL query string.
package navigation

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/C021025/DSASimulator-OJ/internal/domain"
)

// Query keys understood by the question detail page.
const (
	KeyTab            = "tab"
	KeyTargetSubmitID = "targetSubmitId"
	KeyPageNum        = "pageNum"
)

// DefaultPageNum is used when pageNum is absent or invalid.
const DefaultPageNum = 1

// NavState is the part of the page state that round-trips through the URL.
type NavState struct {
	Tab            domain.Tab `json:"tab"`
	TargetSubmitID int64      `json:"targetSubmitId,omitempty"`
	PageNum        int        `json:"pageNum"`
}

// Default returns the state an empty query decodes to.
func Default() NavState {
	return NavState{Tab: domain.TabContent, PageNum: DefaultPageNum}
}

// Normalize clamps out-of-range fields to their defaults.
func (s NavState) Normalize() NavState {
	if _, ok := domain.ParseTab(s.Tab.String()); !ok {
		s.Tab = domain.TabContent
	}
	if s.TargetSubmitID < 0 {
		s.TargetSubmitID = 0
	}
	if s.PageNum < 1 {
		s.PageNum = DefaultPageNum
	}
	return s
}

// Inspecting reports whether the state targets a submission.
func (s NavState) Inspecting() bool {
	return s.TargetSubmitID > 0
}

// WithTab returns a copy on tab with inspection cleared.
func (s NavState) WithTab(tab domain.Tab) NavState {
	s.Tab = tab
	s.TargetSubmitID = 0
	return s
}

// WithTarget returns a copy inspecting id. id <= 0 clears inspection.
func (s NavState) WithTarget(id int64) NavState {
	if id < 0 {
		id = 0
	}
	s.TargetSubmitID = id
	return s
}

// WithPage returns a copy on page n.
func (s NavState) WithPage(n int) NavState {
	if n < 1 {
		n = DefaultPageNum
	}
	s.PageNum = n
	return s
}

// Encode renders the complete query string for s. Every key is derived from s,
// so keys from an earlier location never survive. targetSubmitId is omitted when
// nothing is inspected.
func Encode(s NavState) string {
	s = s.Normalize()
	v := url.Values{}
	v.Set(KeyTab, s.Tab.String())
	v.Set(KeyPageNum, strconv.Itoa(s.PageNum))
	if s.TargetSubmitID > 0 {
		v.Set(KeyTargetSubmitID, strconv.FormatInt(s.TargetSubmitID, 10))
	}
	return v.Encode()
}

// Decode parses a query string, with or without the leading '?'. Absent or
// malformed keys fall back to their defaults; Decode never fails.
func Decode(query string) NavState {
	s := Default()
	v, err := url.ParseQuery(strings.TrimPrefix(query, "?"))
	if err != nil {
		// ParseQuery keeps the pairs it could parse.
		if v == nil {
			return s
		}
	}
	if tab, ok := domain.ParseTab(v.Get(KeyTab)); ok {
		s.Tab = tab
	}
	if raw := strings.TrimSpace(v.Get(KeyTargetSubmitID)); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil && id > 0 {
			s.TargetSubmitID = id
		}
	}
	if raw := strings.TrimSpace(v.Get(KeyPageNum)); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 1 {
			s.PageNum = n
		}
	}
	return s
}
