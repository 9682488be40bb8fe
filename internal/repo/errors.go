package repo

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

var (
	// ErrNotFound is gorm's not-found error, so callers can match either.
	ErrNotFound = gorm.ErrRecordNotFound
	// ErrDuplicate reports an insert that hit a unique constraint.
	ErrDuplicate = errors.New("duplicate")
)

// uniqueViolationText covers drivers that do not translate errors: the
// pure-Go sqlite driver reports UNIQUE failures only as text.
var uniqueViolationText = []string{
	"unique constraint failed",
	"constraint failed: unique",
	"duplicate key value",
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, s := range uniqueViolationText {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
