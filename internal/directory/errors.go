package directory

import (
	"errors"
	"fmt"
	"strings"
)

// apiError is the JSON error envelope the directory returns on non-2xx
// responses.
type apiError struct {
	Message string            `json:"message"`
	Code    string            `json:"code"`
	Meta    map[string]string `json:"meta,omitempty"`
}

// CallError is a well-formed rejection from the directory API: the request
// reached the service and was refused.
type CallError struct {
	Op      string
	Status  int
	Message string
	Code    string
}

func (e *CallError) Error() string {
	return fmt.Sprintf("directory %s failed: %s (%s, status=%d)", e.Op, e.Message, e.Code, e.Status)
}

// TransportError means the directory could not be reached at all, or the
// response was unusable. Distinguished from CallError because the caller
// treats connectivity loss as fatal for the phase in progress.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("directory %s unreachable: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// conflictPatterns covers the vocabulary the directory uses for "this entity
// already exists". The matching is deliberately loose: the exact wording is an
// adapter detail of the remote API, so it lives here and nowhere else.
var conflictPatterns = []string{
	"duplicate key",
	"already exists",
	"unique constraint",
	"duplicate entry",
}

// IsExistenceConflict reports whether err is a create rejection caused solely
// by the entity already existing remotely.
func IsExistenceConflict(err error) bool {
	var ce *CallError
	if !errors.As(err, &ce) {
		return false
	}
	text := strings.ToLower(ce.Message + " " + ce.Code)
	for _, p := range conflictPatterns {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}

// IsUnavailable reports whether err means the directory could not be reached
// (as opposed to a well-formed rejection of one request).
func IsUnavailable(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
