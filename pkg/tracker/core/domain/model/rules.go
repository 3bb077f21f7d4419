package model

import (
	"strings"
	"time"

	"github.com/tigerroll/processtracker/pkg/tracker/support/util/exception"
)

// DependencyKind is the direction of a dependency edge relative to the caller.
type DependencyKind string

const (
	DependencyParent DependencyKind = "parent"
	DependencyChild  DependencyKind = "child"
)

// ParseDependencyKind validates a dependency kind name.
func ParseDependencyKind(kind string) (DependencyKind, error) {
	switch k := DependencyKind(strings.ToLower(kind)); k {
	case DependencyParent, DependencyChild:
		return k, nil
	}
	return "", exception.Newf(exception.ErrInvalidDependencyKind, "model.ParseDependencyKind",
		"Invalid dependency type %q. Valid types are parent or child.", kind)
}

// AuditType selects the write-side or load-side audit fields of an extract.
type AuditType string

const (
	AuditWrite AuditType = "write"
	AuditLoad  AuditType = "load"
)

// ParseAuditType validates an audit type name.
func ParseAuditType(audit string) (AuditType, error) {
	switch a := AuditType(strings.ToLower(audit)); a {
	case AuditWrite, AuditLoad:
		return a, nil
	}
	return "", exception.Newf(exception.ErrInvalidAuditType, "model.ParseAuditType",
		"Invalid audit type %q. Valid types are write or load.", audit)
}

// DateType is the side of a low/high watermark pair.
type DateType string

const (
	DateLow  DateType = "low"
	DateHigh DateType = "high"
)

// ReplacesDate reports whether d replaces the stored watermark prev.
// A low date wins when it is earlier, a high date when it is later, and any
// date wins over an unset one.
func ReplacesDate(dateType DateType, d time.Time, prev *time.Time) (bool, error) {
	switch dateType {
	case DateLow:
		return prev == nil || d.Before(*prev), nil
	case DateHigh:
		return prev == nil || d.After(*prev), nil
	}
	return false, exception.Newf(exception.ErrInvalidDateType, "model.ReplacesDate",
		"Invalid date type %q. Valid types are low or high.", dateType)
}

// MergeDate returns the watermark kept after offering d against prev.
// A nil d leaves prev untouched.
func MergeDate(dateType DateType, d *time.Time, prev *time.Time) (*time.Time, error) {
	if d == nil {
		d = prev
	}
	if d == nil {
		return nil, nil
	}
	replace, err := ReplacesDate(dateType, *d, prev)
	if err != nil {
		return prev, err
	}
	if replace {
		v := *d
		return &v, nil
	}
	return prev, nil
}
