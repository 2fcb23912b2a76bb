//go:build !linux && !darwin

package plugin

import "errors"

// openModule reports that the platform has no dynamic module loading.
// The registry degrades to build-time registration with identical
// lookup semantics.
func openModule(string) error {
	return errors.New("dynamic plugin loading is not supported on this platform")
}
