// Package process provides the builtin processor plugins: packet
// filtering, skipping, bounded runs and real-time pacing.
package process

import "github.com/FerroO2000/flusso/plugin"

// Register registers every builtin processor plugin into the registry.
func Register(reg *plugin.Registry) {
	reg.RegisterProcessor("filter", func() plugin.Processor { return NewFilter() })
	reg.RegisterProcessor("skip", func() plugin.Processor { return NewSkip() })
	reg.RegisterProcessor("until", func() plugin.Processor { return NewUntil() })
	reg.RegisterProcessor("regulate", func() plugin.Processor { return NewRegulate() })
}
