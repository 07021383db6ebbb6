// Package apperr classifies the failures the back office reports to callers.
// Every error that leaves a domain service is either nil or wraps an *Error
// whose Kind tells the transport layer how to surface it.
package apperr

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// Kind is the failure class of an *Error.
type Kind int

const (
	KindUnknown Kind = iota
	// KindMissingData means required upstream records are absent. The user
	// can correct it by completing their profile.
	KindMissingData
	// KindInvalidInput means the submission itself is malformed.
	KindInvalidInput
	// KindExtractionFailed means the document extraction service returned
	// nothing usable or could not be reached.
	KindExtractionFailed
	// KindClassificationUnparseable means the classification service returned
	// text without a recognised decision label, or could not be reached.
	KindClassificationUnparseable
	// KindPersistence means the storage layer failed.
	KindPersistence
)

func (k Kind) String() string {
	switch k {
	case KindMissingData:
		return "missing_data"
	case KindInvalidInput:
		return "invalid_input"
	case KindExtractionFailed:
		return "extraction_failed"
	case KindClassificationUnparseable:
		return "classification_unparseable"
	case KindPersistence:
		return "persistence_error"
	default:
		return "unknown"
	}
}

// Error is a classified failure. Op names the operation that failed
// ("plan.generate", "claims.extract"), Msg is a caller-safe description and
// Err is the underlying cause, if any.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

// Sentinels for errors.Is checks. They match any *Error of the same Kind.
var (
	ErrMissingData               = &Error{Kind: KindMissingData}
	ErrInvalidInput              = &Error{Kind: KindInvalidInput}
	ErrExtractionFailed          = &Error{Kind: KindExtractionFailed}
	ErrClassificationUnparseable = &Error{Kind: KindClassificationUnparseable}
	ErrPersistence               = &Error{Kind: KindPersistence}
)

func (e *Error) Error() string {
	parts := make([]string, 0, 3)
	if e.Op != "" {
		parts = append(parts, e.Op)
	}
	if e.Msg != "" {
		parts = append(parts, e.Msg)
	} else {
		parts = append(parts, strings.ReplaceAll(e.Kind.String(), "_", " "))
	}
	if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}
	return strings.Join(parts, ": ")
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel for e's Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Msg == "" && t.Err == nil && t.Kind == e.Kind
}

// MissingData reports absent upstream records.
func MissingData(op, msg string) error {
	return &Error{Kind: KindMissingData, Op: op, Msg: msg}
}

// InvalidInput reports a malformed submission.
func InvalidInput(op, msg string) error {
	return &Error{Kind: KindInvalidInput, Op: op, Msg: msg}
}

// ExtractionFailed wraps a failed or empty document extraction. cause may be nil.
func ExtractionFailed(op string, cause error) error {
	return &Error{Kind: KindExtractionFailed, Op: op, Msg: "document extraction failed", Err: cause}
}

// ClassificationUnparseable wraps a classifier failure. cause may be nil.
func ClassificationUnparseable(op string, cause error) error {
	return &Error{Kind: KindClassificationUnparseable, Op: op, Msg: "claim classification unavailable", Err: cause}
}

// Persistence wraps a storage error. A nil cause yields nil so repositories
// can return apperr.Persistence(op, err) unconditionally.
func Persistence(op string, cause error) error {
	if cause == nil {
		return nil
	}
	var ae *Error
	if errors.As(cause, &ae) {
		return cause
	}
	return &Error{Kind: KindPersistence, Op: op, Err: cause}
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindUnknown
}

// HTTPStatus maps err to the status code the API responds with.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindMissingData, KindInvalidInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// ToHTTP converts err into an echo.HTTPError. Classified errors keep their
// message; storage and unknown errors are reported generically.
func ToHTTP(err error) *echo.HTTPError {
	status := HTTPStatus(err)
	var ae *Error
	if !errors.As(err, &ae) {
		return echo.NewHTTPError(status, "internal server error").SetInternal(err)
	}
	body := map[string]string{"error": ae.Kind.String()}
	switch ae.Kind {
	case KindPersistence:
		body["message"] = "storage unavailable"
	default:
		if ae.Msg != "" {
			body["message"] = ae.Msg
		}
	}
	return echo.NewHTTPError(status, body).SetInternal(err)
}
