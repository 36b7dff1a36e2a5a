package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// Base is embedded by domain repositories. It holds whatever handle the
// repository was built with, a pool connection or an open transaction.
type Base struct {
	conn *gorm.DB
}

func NewBase(conn *gorm.DB) Base {
	return Base{conn: conn}
}

// DB returns the handle scoped to ctx; a nil ctx returns it unscoped.
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.conn
	}
	return b.conn.WithContext(ctx)
}

// Claimed reports whether a guarded UPDATE touched exactly one row. Status
// transitions and one-shot stamps use a WHERE clause on the prior value, so
// zero rows means another caller got there first.
func Claimed(res *gorm.DB) (bool, error) {
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// IsNotFound matches gorm's missing-row sentinel through wrapping.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
