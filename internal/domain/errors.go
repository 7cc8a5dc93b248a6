package domain

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrQuestionNotFound is returned when the question id does not resolve.
	ErrQuestionNotFound = errors.New("question not found")

	// ErrSubmissionNotFound is returned when a submission id does not resolve.
	ErrSubmissionNotFound = errors.New("submission not found")

	// ErrInvalidLanguage is returned when an unsupported language is selected.
	ErrInvalidLanguage = errors.New("invalid or unsupported language")

	// ErrEmptySourceCode is returned when run or submit is attempted with a blank buffer.
	ErrEmptySourceCode = errors.New("source code cannot be empty")

	// ErrInspecting is returned when an editor action is attempted while a past submission is shown.
	ErrInspecting = errors.New("a submission is being inspected, close it first")

	// ErrUnauthenticated is returned when an action requires a signed-in user.
	ErrUnauthenticated = errors.New("sign in required")

	// ErrQuestionNotLoaded is returned when an action needs the question but it has not loaded yet.
	ErrQuestionNotLoaded = errors.New("question is not loaded")

	// ErrRunInFlight is returned when a run is requested while another run is pending.
	ErrRunInFlight = errors.New("a run is already in progress")

	// ErrSubmitInFlight is returned when a submit is requested while another submit is pending.
	ErrSubmitInFlight = errors.New("a submission is already in progress")

	// ErrStaleRun is returned when a run finished after the buffer it ran was edited.
	ErrStaleRun = errors.New("run result discarded, the code changed while it was running")

	// ErrJudgeUnavailable is returned when the judge transport cannot be reached.
	ErrJudgeUnavailable = errors.New("judge service is currently unavailable")

	// ErrSessionNotFound is returned when an inspector session id is unknown.
	ErrSessionNotFound = errors.New("session not found")
)

// RemoteError describes a failed call to a backend collaborator.
type RemoteError struct {
	Op         string
	Code       int
	HTTPStatus int
	Message    string
	Err        error
}

func (e *RemoteError) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s: %s (code %d)", e.Op, e.Message, e.Code)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return e.Op + ": remote call failed"
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is a network or 5xx failure the user may retry.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrJudgeUnavailable) {
		return true
	}
	var re *RemoteError
	if errors.As(err, &re) {
		if re.HTTPStatus == 0 && re.Code == 0 {
			return true
		}
		return re.HTTPStatus >= http.StatusInternalServerError
	}
	return false
}

// IsNotFound reports whether err means the target entity does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrQuestionNotFound) || errors.Is(err, ErrSubmissionNotFound)
}
