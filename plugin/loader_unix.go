//go:build linux || darwin

package plugin

import goplugin "plugin"

// openModule opens a shared module built with -buildmode=plugin.
// The module registers itself against the default registry during its
// package initialization.
func openModule(modPath string) error {
	_, err := goplugin.Open(modPath)
	return err
}
