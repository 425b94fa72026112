package review

import (
	"errors"
	"fmt"
)

// ErrorKind is the closed set of failures a review command can report.
type ErrorKind string

const (
	KindAnalysisUnavailable ErrorKind = "ANALYSIS_UNAVAILABLE"
	KindAnalysisRejected    ErrorKind = "ANALYSIS_REJECTED"
	KindAnalysisTimeout     ErrorKind = "ANALYSIS_TIMEOUT"
	KindEmptyDraft          ErrorKind = "EMPTY_DRAFT"
	KindUnknownTemplate     ErrorKind = "UNKNOWN_TEMPLATE"
	KindAlreadySent         ErrorKind = "ALREADY_SENT"
	KindRFIAlreadySent      ErrorKind = "RFI_ALREADY_SENT"
	KindRFISendFailed       ErrorKind = "RFI_SEND_FAILED"
	KindCaseNotFound        ErrorKind = "CASE_NOT_FOUND"
	KindUnknownPolicy       ErrorKind = "UNKNOWN_POLICY"
	KindInvalidState        ErrorKind = "INVALID_STATE"
	KindInvalidArgument     ErrorKind = "INVALID_ARGUMENT"
)

// Retryable reports whether the same command may succeed if issued again unchanged.
func (k ErrorKind) Retryable() bool {
	switch k {
	case KindAnalysisUnavailable, KindAnalysisTimeout, KindRFISendFailed:
		return true
	}
	return false
}

type Error struct {
	Kind   ErrorKind
	CaseID string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := string(e.Kind)
	if e.CaseID != "" {
		msg = fmt.Sprintf("%s (case %s)", msg, e.CaseID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on kind only. A timeout also matches ErrAnalysisUnavailable.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	if t.Kind == e.Kind {
		return true
	}
	return e.Kind == KindAnalysisTimeout && t.Kind == KindAnalysisUnavailable
}

var (
	ErrAnalysisUnavailable = &Error{Kind: KindAnalysisUnavailable}
	ErrAnalysisRejected    = &Error{Kind: KindAnalysisRejected}
	ErrAnalysisTimeout     = &Error{Kind: KindAnalysisTimeout}
	ErrEmptyDraft          = &Error{Kind: KindEmptyDraft}
	ErrUnknownTemplate     = &Error{Kind: KindUnknownTemplate}
	ErrAlreadySent         = &Error{Kind: KindAlreadySent}
	ErrRFIAlreadySent      = &Error{Kind: KindRFIAlreadySent}
	ErrRFISendFailed       = &Error{Kind: KindRFISendFailed}
	ErrCaseNotFound        = &Error{Kind: KindCaseNotFound}
	ErrUnknownPolicy       = &Error{Kind: KindUnknownPolicy}
	ErrInvalidState        = &Error{Kind: KindInvalidState}
	ErrInvalidArgument     = &Error{Kind: KindInvalidArgument}
)

func NewError(kind ErrorKind, caseID string, err error) *Error {
	return &Error{Kind: kind, CaseID: caseID, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or "" if there is none.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) && e != nil {
		return e.Kind
	}
	return ""
}
