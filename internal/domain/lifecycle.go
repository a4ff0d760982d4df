package domain

import (
	"database/sql/driver"
	"fmt"
)

// Lifecycle marks a catalog record as live or soft-deleted
type Lifecycle string

const (
	LifecycleActive  Lifecycle = "active"
	LifecycleDeleted Lifecycle = "deleted"
)

func (l Lifecycle) IsDeleted() bool {
	return l == LifecycleDeleted
}

// Value implements driver.Valuer
func (l Lifecycle) Value() (driver.Value, error) {
	if l == "" {
		return string(LifecycleActive), nil
	}
	return string(l), nil
}

// Scan implements sql.Scanner and rejects unknown tags
func (l *Lifecycle) Scan(src any) error {
	var s string
	switch v := src.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("cannot scan %T into Lifecycle", src)
	}

	switch Lifecycle(s) {
	case LifecycleActive, LifecycleDeleted:
		*l = Lifecycle(s)
		return nil
	default:
		return fmt.Errorf("unknown lifecycle %q", s)
	}
}
