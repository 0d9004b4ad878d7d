package store

import (
	"errors"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

const pqUniqueViolation = "23505"

// uniqueViolation reports whether err is a unique constraint failure from
// either driver.
func uniqueViolation(err error) bool {
	var serr sqlite3.Error
	if errors.As(err, &serr) {
		return serr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	var perr *pq.Error
	if errors.As(err, &perr) {
		return perr.Code == pqUniqueViolation
	}
	return false
}
