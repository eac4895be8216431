package domain

import (
	"errors"
	"sort"
	"strings"
)

type Code int

// Error codes for everything the record store and the container can report.
const (
	CodeInvalidCredentials Code = iota + 1
	CodeValidation
	CodeNotFound
	CodeNetworkSimulation
)

// CodeMsgMap keeps the default user-facing message per code.
var CodeMsgMap = map[Code]string{
	CodeInvalidCredentials: "Invalid credentials",
	CodeValidation:         "Validation failed",
	CodeNotFound:           "User not found",
	CodeNetworkSimulation:  "Request failed",
}

func (c Code) String() string {
	switch c {
	case CodeInvalidCredentials:
		return "invalid_credentials"
	case CodeValidation:
		return "validation"
	case CodeNotFound:
		return "not_found"
	case CodeNetworkSimulation:
		return "network_simulation"
	}
	return "unknown"
}

// Error is the single error type crossing the store/container boundary.
// Fields is only set for validation failures and maps a form field to its message.
type Error struct {
	Code   Code
	Msg    string
	Fields map[string]string
	Err    error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = CodeMsgMap[e.Code]
	}
	if len(e.Fields) > 0 {
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+": "+e.Fields[k])
		}
		msg += " (" + strings.Join(parts, ", ") + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error carrying the same code, so the sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

var (
	ErrInvalidCredentials = &Error{Code: CodeInvalidCredentials}
	ErrValidation         = &Error{Code: CodeValidation}
	ErrNotFound           = &Error{Code: CodeNotFound}
	ErrNetworkSimulation  = &Error{Code: CodeNetworkSimulation}
)

func InvalidCredentials() error { return &Error{Code: CodeInvalidCredentials} }

func NotFound(msg string) error { return &Error{Code: CodeNotFound, Msg: msg} }

func Validation(fields map[string]string) error {
	return &Error{Code: CodeValidation, Fields: fields}
}

func Network(msg string, err error) error {
	return &Error{Code: CodeNetworkSimulation, Msg: msg, Err: err}
}

// CodeOf reports the code of err, treating anything foreign as a simulated network failure.
func CodeOf(err error) Code {
	if err == nil {
		return 0
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeNetworkSimulation
}
