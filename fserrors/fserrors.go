// Package fserrors defines the structured error taxonomy used throughout
// simplefs. It plays the same role as disko.DriverError in the driver this
// package was modeled on: pair a stable, comparable sentinel with a
// human-readable message, instead of returning bare strings that callers
// have to pattern-match.
package fserrors

import "fmt"

// Kind identifies one of the error categories a simplefs operation can fail
// with. Callers should branch on Kind, not on the error string.
type Kind int

const (
	// NotMounted indicates a data operation was attempted before Mount.
	NotMounted Kind = iota + 1
	// AlreadyMounted indicates Format was attempted while mounted.
	AlreadyMounted
	// BadMagic indicates Mount was attempted on an image without the
	// expected superblock magic number.
	BadMagic
	// InvalidInumber indicates an inumber is out of range or refers to a
	// free inode.
	InvalidInumber
	// NoSpace indicates the allocator has no free blocks left.
	NoSpace
	// OutOfBounds indicates a logical block index exceeds what direct and
	// indirect pointers can address.
	OutOfBounds
	// IOError indicates the underlying block device failed a read or write.
	IOError
)

func (k Kind) String() string {
	switch k {
	case NotMounted:
		return "not mounted"
	case AlreadyMounted:
		return "already mounted"
	case BadMagic:
		return "bad magic number"
	case InvalidInumber:
		return "invalid inode number"
	case NoSpace:
		return "no space left on device"
	case OutOfBounds:
		return "logical block out of bounds"
	case IOError:
		return "I/O error"
	default:
		return "unknown error"
	}
}

// Error is the concrete error type returned by every fallible simplefs
// operation.
type Error struct {
	kind    Kind
	message string
}

// New creates an Error of the given kind with a default message derived from
// the kind itself.
func New(kind Kind) *Error {
	return &Error{kind: kind, message: kind.String()}
}

// Newf creates an Error of the given kind with a custom formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{kind: kind, message: fmt.Sprintf("%s: %s", kind, fmt.Sprintf(format, args...))}
}

// Wrap creates an Error of the given kind that carries an underlying cause,
// typically an I/O failure surfaced from a blockdev.Device.
func Wrap(kind Kind, cause error) *Error {
	return &Error{kind: kind, message: fmt.Sprintf("%s: %s", kind, cause.Error())}
}

// Error implements the standard error interface.
func (e *Error) Error() string {
	return e.message
}

// Kind returns the category of this error.
func (e *Error) Kind() Kind {
	return e.kind
}

// Is lets errors.Is match two *Error values of the same Kind, mirroring the
// way callers are meant to compare sentinels (e.g. errors.Is(err,
// fserrors.New(fserrors.NoSpace))) without caring about message text.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return other.kind == e.kind
}
