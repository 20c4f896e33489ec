package formsaver

import (
	"errors"
	"fmt"
)

var (
	// ErrDecode reports a stored entry that is not a valid envelope.
	ErrDecode = errors.New("formsaver: decode failed")
	// ErrEncode reports a control value that cannot be serialized.
	ErrEncode = errors.New("formsaver: encode failed")
	// ErrStorage reports a storage adapter failure.
	ErrStorage = errors.New("formsaver: storage failed")
	// ErrPatch reports restored data that fits neither Patch nor Set.
	ErrPatch = errors.New("formsaver: patch failed")
	// ErrMigration reports a migration step that failed.
	ErrMigration = errors.New("formsaver: migration failed")
	// ErrDuplicateMigration reports two steps sharing the same From version.
	ErrDuplicateMigration = errors.New("formsaver: duplicate migration")
	// ErrNilControl is returned by Attach when no control is supplied.
	ErrNilControl = errors.New("formsaver: control is nil")
	// ErrInvalidSettings is returned when resolved settings fail validation.
	ErrInvalidSettings = errors.New("formsaver: invalid settings")
)

// DecodeError describes why a stored entry could not be decoded.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err == nil {
		return fmt.Sprintf("formsaver: decode: %s", e.Reason)
	}
	return fmt.Sprintf("formsaver: decode: %s: %v", e.Reason, e.Err)
}

func (e *DecodeError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *DecodeError) Is(target error) bool {
	return target == ErrDecode
}

// MigrationError reports the step that failed while migrating a payload.
type MigrationError struct {
	From Version
	To   Version
	Err  error
}

func (e *MigrationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("formsaver: migrate %s -> %s: %v", e.From, e.To, e.Err)
}

func (e *MigrationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *MigrationError) Is(target error) bool {
	return target == ErrMigration
}
