//go:build !linux

package ingress

import "github.com/FerroO2000/flusso/plugin"

// The eBPF input needs the Linux perf subsystem; elsewhere it is simply
// not registered and resolving "ebpf" reports not found.
func registerPlatform(_ *plugin.Registry) {}
