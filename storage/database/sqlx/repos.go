// Package sqlxrepos implements the business repositories on PostgreSQL
// via sqlx.
package sqlxrepos

import (
	"strings"

	"github.com/lib/pq"
)

// unique_violation
const uniqueViolation = pq.ErrorCode("23505")

// isUniqueViolation reports whether err is a duplicate-key error on the
// given constraint (any constraint when empty).
func isUniqueViolation(err error, constraint string) bool {
	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == uniqueViolation {
		return constraint == "" || pqErr.Constraint == constraint
	}
	return false
}

func likePattern(s string) string {
	return "%" + strings.ToLower(s) + "%"
}
