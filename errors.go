package flusso

import (
	"errors"
	"fmt"
)

// ErrAborted is returned by Run when a plugin requested a pipeline-wide
// shutdown, either through an abort disposition or a non-recoverable
// failure.
var ErrAborted = errors.New("aborted by plugin")

// errInputParticipant rejects inputs opting into joint termination.
var errInputParticipant = errors.New("an input plugin cannot join the termination protocol")

// SetupError reports a pipeline assembly or startup failure: an
// unresolvable plugin name, a rejected option set, a failed Start.
// The pipeline never runs partially configured.
type SetupError struct {
	Stage string
	Err   error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("setup of stage %q failed: %v", e.Stage, e.Err)
}

func (e *SetupError) Unwrap() error {
	return e.Err
}
