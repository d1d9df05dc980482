package config

import (
	"errors"
	"fmt"
)

var (
	ErrSettingNotFound  = errors.New("setting not found")
	ErrTypeMismatch     = errors.New("type mismatch")
	ErrValidationFailed = errors.New("validation failed")
	ErrClosed           = errors.New("config closed")
)

// ValidationError reports a setting whose value is out of range. It matches
// ErrValidationFailed.
type ValidationError struct {
	Path    string
	Message string
	Value   any
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config %s: %s: %v", e.Path, e.Message, e.Value)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidationFailed }

// TypeError reports a setting read with the wrong getter. It matches
// ErrTypeMismatch.
type TypeError struct {
	Path     string
	Expected string
	Actual   string
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("config %s: want %s, have %s", e.Path, e.Expected, e.Actual)
}

func (e *TypeError) Is(target error) bool { return target == ErrTypeMismatch }
