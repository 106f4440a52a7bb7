// Package apperr ordnet Fehler den HTTP-Statuscodes der API zu.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind klassifiziert einen Fehler an der Request-Grenze.
type Kind int

const (
	KindPersistence Kind = iota
	KindAuthentication
	KindAuthorization
	KindValidation
	KindReference
	KindNotFound
	KindConflict
	KindTooLarge
)

func (k Kind) String() string {
	switch k {
	case KindAuthentication:
		return "authentication"
	case KindAuthorization:
		return "authorization"
	case KindValidation:
		return "validation"
	case KindReference:
		return "reference"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindTooLarge:
		return "too_large"
	default:
		return "persistence"
	}
}

// Status liefert den HTTP-Statuscode für die Fehlerart.
func (k Kind) Status() int {
	switch k {
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindAuthorization:
		return http.StatusForbidden
	case KindValidation, KindReference:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindTooLarge:
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

// Error trägt die Meldung für den Client und optional die eigentliche Ursache.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, msg string, cause error) error {
	return &Error{Kind: kind, Message: msg, Err: cause}
}

func Authentication(msg string) error { return newError(KindAuthentication, msg, nil) }
func Authorization(msg string) error  { return newError(KindAuthorization, msg, nil) }
func Validation(msg string) error     { return newError(KindValidation, msg, nil) }
func Reference(msg string) error      { return newError(KindReference, msg, nil) }
func NotFound(msg string) error       { return newError(KindNotFound, msg, nil) }
func Conflict(msg string) error       { return newError(KindConflict, msg, nil) }
func TooLarge(msg string) error       { return newError(KindTooLarge, msg, nil) }

// Validationf ist Validation mit Formatierung.
func Validationf(format string, args ...any) error {
	return newError(KindValidation, fmt.Sprintf(format, args...), nil)
}

// Wrap hängt eine Ursache an, die nur serverseitig geloggt wird.
func Wrap(kind Kind, msg string, cause error) error {
	return newError(kind, msg, cause)
}

// Persistence markiert einen unerwarteten Fehler der Datenbank.
func Persistence(cause error) error {
	return newError(KindPersistence, "persistence failure", cause)
}

// KindOf liefert die Fehlerart; unbekannte Fehler gelten als KindPersistence.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindPersistence
}

// StatusCode liefert den HTTP-Status für err.
func StatusCode(err error) int {
	return KindOf(err).Status()
}

// Message liefert die für den Client bestimmte Meldung. Für 500er-Fehler wird
// fallback zurückgegeben, damit keine Interna nach außen gelangen.
func Message(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindPersistence && e.Message != "" {
		return e.Message
	}
	return fallback
}

// Is meldet, ob err von der Art kind ist.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
