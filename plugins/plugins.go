// Package plugins ties the builtin stage implementations together.
package plugins

import (
	"github.com/FerroO2000/flusso/plugin"
	"github.com/FerroO2000/flusso/plugins/egress"
	"github.com/FerroO2000/flusso/plugins/ingress"
	"github.com/FerroO2000/flusso/plugins/process"
)

// RegisterBuiltins registers every builtin plugin into the registry.
func RegisterBuiltins(reg *plugin.Registry) {
	ingress.Register(reg)
	process.Register(reg)
	egress.Register(reg)
}
