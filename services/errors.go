package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	// ErrNotFound wird geliefert, wenn der angefragte Datensatz nicht existiert.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyAssigned meldet eine doppelte Zuweisung (submission_id, reviewer_id).
	ErrAlreadyAssigned = errors.New("reviewer already assigned")
	// ErrInvalidTransition meldet einen unzulässigen Statuswechsel eines Gutachtens.
	ErrInvalidTransition = errors.New("invalid review status transition")
	// ErrNotAccepted meldet, dass nur angenommene Einreichungen konvertiert werden können.
	ErrNotAccepted = errors.New("submission is not accepted")
	// ErrInvalidInput meldet fehlerhafte Eingaben.
	ErrInvalidInput = errors.New("invalid input")
)

func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// checkID weist IDs ab, die keine UUID sind. Postgres bricht den Vergleich mit einer
// uuid-Spalte sonst mit SQLSTATE 22P02 ab, gemeldet wird daher ErrNotFound.
func checkID(id, what string) error {
	if uuid.Validate(id) != nil {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return nil
}

// notFound übersetzt gorm.ErrRecordNotFound in ErrNotFound.
func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return err
}

// isUniqueViolation erkennt Verletzungen eines Unique-Index. TranslateError liefert
// gorm.ErrDuplicatedKey, die Textprüfung greift für Treiber ohne Übersetzung.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	// PostgreSQL SQLSTATE 23505, SQLite "UNIQUE constraint failed"
	return strings.Contains(msg, "23505") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint")
}
