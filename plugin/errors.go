package plugin

import "errors"

// ErrNotFound is returned by the registry when no factory is registered
// under the requested name, after an eventual dynamic load attempt.
var ErrNotFound = errors.New("plugin: not found")

type recoverableError struct {
	err error
}

func (e *recoverableError) Error() string {
	return e.err.Error()
}

func (e *recoverableError) Unwrap() error {
	return e.err
}

// Recoverable marks a processing error as limited to a single packet:
// the engine logs it, drops the packet and keeps the pipeline running.
// Any unmarked processing error is fatal and triggers a pipeline-wide
// shutdown.
func Recoverable(err error) error {
	if err == nil {
		return nil
	}

	return &recoverableError{err: err}
}

// IsRecoverable states whether the error is limited to a single packet.
func IsRecoverable(err error) bool {
	var recErr *recoverableError
	return errors.As(err, &recErr)
}
