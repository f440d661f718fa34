// Package errs carries the error taxonomy shared by the search packages.
//
// Every fallible boundary tags its errors with a Category so that callers
// can route on the class of failure without string matching: validation
// failures surface before work is scheduled, I/O failures on load abort the
// run, I/O failures on checkpoint save are retried, crypto failures skip the
// failing candidate while the rest of its batch is still searched.
package errs

import (
	"errors"
	"fmt"
)

// Category classifies an error for propagation policy decisions.
type Category uint8

const (
	IO Category = iota + 1
	Memory
	Crypto
	Parse
	Network
	Config
	Validation
	Runtime
	System
)

func (c Category) String() string {
	switch c {
	case IO:
		return "io"
	case Memory:
		return "memory"
	case Crypto:
		return "crypto"
	case Parse:
		return "parse"
	case Network:
		return "network"
	case Config:
		return "config"
	case Validation:
		return "validation"
	case Runtime:
		return "runtime"
	case System:
		return "system"
	}
	return "unknown"
}

// Error is a categorized error with an optional nested cause.
type Error struct {
	Cat Category
	Msg string
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Cat.String() + ": " + e.Msg + ": " + e.Err.Error()
	}
	return e.Cat.String() + ": " + e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// New returns a categorized error with no cause.
func New(cat Category, msg string) error {
	return &Error{Cat: cat, Msg: msg}
}

// Newf returns a categorized error with a formatted message.
func Newf(cat Category, format string, args ...any) error {
	return &Error{Cat: cat, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a category and message to cause. A nil cause returns nil.
func Wrap(cat Category, msg string, cause error) error {
	if cause == nil {
		return nil
	}
	return &Error{Cat: cat, Msg: msg, Err: cause}
}

// CategoryOf walks the error chain and returns the outermost category, or 0
// if no categorized error is present.
func CategoryOf(err error) Category {
	var e *Error
	if errors.As(err, &e) {
		return e.Cat
	}
	return 0
}

// IsCategory reports whether any error in the chain carries cat.
func IsCategory(err error, cat Category) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Cat == cat {
			return true
		}
		err = e.Err
	}
	return false
}
