// Package warnlist accumulates non-fatal conditions raised while mirroring —
// chiefly a SizeInvariantError reported for a menu VOB whose size is not a
// multiple of the 2048-byte block size — so the CLI can report them once at the
// end of a successful run instead of aborting on them.
package warnlist

import (
	"github.com/hashicorp/go-multierror"
)

// List collects warnings in the order they were raised.
type List struct {
	errs *multierror.Error
}

// New returns an empty List.
func New() *List {
	return &List{}
}

// Add records a warning. Nil is ignored so callers can add conditionally
// without an extra branch.
func (l *List) Add(err error) {
	if err == nil {
		return
	}
	l.errs = multierror.Append(l.errs, err)
}

// Empty reports whether no warnings were recorded.
func (l *List) Empty() bool {
	return l.errs == nil || len(l.errs.Errors) == 0
}

// Len returns the number of recorded warnings.
func (l *List) Len() int {
	if l.errs == nil {
		return 0
	}
	return len(l.errs.Errors)
}

// Errors returns the recorded warnings in order.
func (l *List) Errors() []error {
	if l.errs == nil {
		return nil
	}
	return l.errs.Errors
}

// String renders every warning, one per line, matching multierror's default
// formatting.
func (l *List) String() string {
	if l.Empty() {
		return ""
	}
	return l.errs.Error()
}
