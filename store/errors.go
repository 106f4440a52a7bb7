package store

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"papertrail/apperr"
)

const msgInvalidPayload = "Invalid payload. Check field types and enums."

// classify übersetzt Datenbankfehler in apperr-Fehler. notFound ist die
// Meldung für fehlende Datensätze.
func classify(err error, notFound string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.Wrap(apperr.KindNotFound, notFound, err)
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return apperr.Persistence(err)
	}
	switch {
	case pgErr.Code == "P0002":
		return apperr.Wrap(apperr.KindNotFound, notFound, err)
	case strings.HasPrefix(pgErr.Code, "23"):
		detail := pgErr.Detail
		if detail == "" {
			detail = pgErr.Message
		}
		return apperr.Wrap(apperr.KindValidation, "Invalid data: "+detail, err)
	case strings.HasPrefix(pgErr.Code, "22"):
		return apperr.Wrap(apperr.KindValidation, msgInvalidPayload, err)
	default:
		return apperr.Persistence(err)
	}
}

// escapeLike maskiert die LIKE-Metazeichen, damit die Suche ein reiner Teilstring-Vergleich ist.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
