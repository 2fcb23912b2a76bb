// Package ingress provides the builtin input plugins: packet sources
// reading from nothing, files, watched directories, packet captures,
// Kafka topics and (on Linux) eBPF perf buffers.
package ingress

import "github.com/FerroO2000/flusso/plugin"

// Register registers every builtin input plugin into the registry.
func Register(reg *plugin.Registry) {
	reg.RegisterInput("null", func() plugin.Input { return NewNull() })
	reg.RegisterInput("file", func() plugin.Input { return NewFile() })
	reg.RegisterInput("watch", func() plugin.Input { return NewWatch() })
	reg.RegisterInput("pcap", func() plugin.Input { return NewPCAP() })
	reg.RegisterInput("kafka", func() plugin.Input { return NewKafka() })

	registerPlatform(reg)
}
