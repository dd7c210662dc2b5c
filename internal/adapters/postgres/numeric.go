package postgres

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gorm.io/gorm"
)

// numeric maps a u64 onto a NUMERIC(20,0) column. Postgres has no unsigned
// 64-bit integer, so values travel as decimal text.
type numeric uint64

func (n numeric) Value() (driver.Value, error) {
	return strconv.FormatUint(uint64(n), 10), nil
}

func (n *numeric) Scan(src any) error {
	var raw string
	switch v := src.(type) {
	case nil:
		*n = 0
		return nil
	case []byte:
		raw = string(v)
	case string:
		raw = v
	case int64:
		if v < 0 {
			return fmt.Errorf("scan numeric: negative value %d", v)
		}
		*n = numeric(v)
		return nil
	default:
		return fmt.Errorf("scan numeric: unsupported type %T", src)
	}
	parsed, err := parseNumeric(raw)
	if err != nil {
		return err
	}
	*n = parsed
	return nil
}

func parseNumeric(raw string) (numeric, error) {
	raw = strings.TrimSpace(raw)
	if i := strings.IndexByte(raw, '.'); i >= 0 {
		raw = raw[:i]
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("scan numeric %q: %w", raw, err)
	}
	return numeric(v), nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}
