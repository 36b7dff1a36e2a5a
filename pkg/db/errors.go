package db

import (
	"strings"

	pkgerrors "github.com/angelmondragon/tradeflow-backend/pkg/errors"
)

const pgUniqueViolation = "23505"

// IsUniqueViolation reports a duplicate key. A non-empty constraintName must
// also match. Postgres faults come from either driver; sqlite (tests) only
// exposes its message.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	if f := pkgerrors.PostgresFault(err); f != nil {
		return f.Code == pgUniqueViolation && (constraintName == "" || f.Constraint == constraintName)
	}
	msg := err.Error()
	if !strings.Contains(msg, "UNIQUE constraint failed") {
		return false
	}
	return constraintName == "" || strings.Contains(msg, constraintName)
}
