package reconcile

import (
	"errors"
	"fmt"
)

// Phase names as reported in fatal errors and logs.
const (
	PhaseConnectivity      = "connectivity"
	PhaseGroupSync         = "group-sync"
	PhaseIdentityMapReload = "identity-map-reload"
	PhaseMembershipLoad    = "membership-load"
	PhaseUserSync          = "user-sync"
)

// ErrRunInProgress is returned when a reconciliation run is requested while
// another one holds the run lock. Both runs would race on the same owner
// namespace and checkpoint file, so the second is rejected.
var ErrRunInProgress = errors.New("reconciliation run already in progress")

// SourceUnavailableError means the relational source store could not be
// reached or queried. Always fatal; raised before any remote mutation when it
// hits the initial org read.
type SourceUnavailableError struct {
	Err error
}

func (e *SourceUnavailableError) Error() string {
	return fmt.Sprintf("source store unavailable: %v", e.Err)
}

func (e *SourceUnavailableError) Unwrap() error {
	return e.Err
}

// RemoteUnavailableError means the directory API could not be reached at all,
// as opposed to rejecting one well-formed request. Fatal for the phase in
// progress; the checkpoint for that phase is not advanced.
type RemoteUnavailableError struct {
	Phase string
	Err   error
}

func (e *RemoteUnavailableError) Error() string {
	return fmt.Sprintf("remote directory unavailable during %s: %v", e.Phase, e.Err)
}

func (e *RemoteUnavailableError) Unwrap() error {
	return e.Err
}
