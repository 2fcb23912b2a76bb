// Command flusso assembles and runs a packet pipeline from the command
// line: one input, a chain of processors and one output, each given as
// "name" or "name:key=val,key=val".
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/FerroO2000/flusso"
	"github.com/FerroO2000/flusso/plugin"
	"github.com/FerroO2000/flusso/plugins"
	"github.com/FerroO2000/flusso/telemetry"
)

type stageSpecList []string

func (l *stageSpecList) String() string {
	return strings.Join(*l, " ")
}

func (l *stageSpecList) Set(value string) error {
	*l = append(*l, value)
	return nil
}

func main() {
	var (
		listFlag    = flag.Bool("list", false, "list the available plugins and exit")
		loadAllFlag = flag.Bool("load-all", false, "with -list, eagerly load external plugin modules first")

		pluginsDirFlag = flag.String("plugins-dir", "", `";"-separated directories searched for external plugin modules`)

		inputFlag  = flag.String("input", "null", "input stage spec")
		outputFlag = flag.String("output", "drop", "output stage spec")

		packetSizeFlag = flag.Int("packet-size", flusso.DefaultConfigPacketSize, "packet payload size in bytes")
		bufferFlag     = flag.Int("buffer", flusso.DefaultConfigBufferCapacity, "inter-stage buffer capacity in packets")

		otlpEndpointFlag = flag.String("otlp-endpoint", "localhost:4317", "OTLP collector endpoint")
		traceRatioFlag   = flag.Float64("trace-ratio", 0.05, "trace sampling ratio")
	)

	var procFlags stageSpecList
	flag.Var(&procFlags, "proc", "processor stage spec, repeatable, applied in order")

	flag.Parse()

	ctx, cancelCtx := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer cancelCtx()

	providers, err := telemetry.InitProviders(ctx, "flusso", *otlpEndpointFlag, *traceRatioFlag)

	tel := telemetry.NewTelemetry("flusso", "cli")

	if err != nil {
		tel.LogError("failed to initialize telemetry providers", err)
		os.Exit(1)
	}
	if providers != nil {
		defer func() {
			if err := providers.Shutdown(context.Background()); err != nil {
				tel.LogError("failed to shut down telemetry providers", err)
			}
		}()
	}

	reg := plugin.Default()
	plugins.RegisterBuiltins(reg)

	if *pluginsDirFlag != "" {
		reg.AllowDynamicLoading(strings.Split(*pluginsDirFlag, ";")...)
	}

	if *listFlag {
		fmt.Print(reg.List(*loadAllFlag, tel))
		return
	}

	cfg, err := buildConfig(*inputFlag, *outputFlag, procFlags)
	if err != nil {
		tel.LogError("invalid stage spec", err)
		os.Exit(1)
	}
	cfg.PacketSize = *packetSizeFlag
	cfg.BufferCapacity = *bufferFlag

	pipe, err := flusso.NewPipeline(reg, cfg)
	if err != nil {
		tel.LogError("failed to assemble pipeline", err)
		os.Exit(1)
	}

	runErr := pipe.Run(ctx)

	for _, count := range pipe.Counts() {
		tel.LogInfo("stage packet count",
			"kind", count.Kind.String(),
			"stage", count.Name,
			"packets", count.Packets,
		)
	}

	if runErr != nil && ctx.Err() == nil {
		tel.LogError("pipeline failed", runErr)
		os.Exit(1)
	}
}

func buildConfig(input, output string, procs []string) (*flusso.Config, error) {
	inputSpec, err := parseStageSpec(input)
	if err != nil {
		return nil, err
	}

	outputSpec, err := parseStageSpec(output)
	if err != nil {
		return nil, err
	}

	procSpecs := make([]flusso.StageSpec, 0, len(procs))
	for _, proc := range procs {
		spec, err := parseStageSpec(proc)
		if err != nil {
			return nil, err
		}

		procSpecs = append(procSpecs, spec)
	}

	return flusso.NewConfig(inputSpec, outputSpec, procSpecs...), nil
}

// parseStageSpec parses "name" or "name:key=val,key=val". A bare key
// counts as a boolean true option.
func parseStageSpec(spec string) (flusso.StageSpec, error) {
	name, rawOpts, hasOpts := strings.Cut(spec, ":")
	if name == "" {
		return flusso.StageSpec{}, fmt.Errorf("stage spec %q: missing plugin name", spec)
	}

	opts := make(plugin.Options)
	if hasOpts {
		for _, rawOpt := range strings.Split(rawOpts, ",") {
			key, value, _ := strings.Cut(rawOpt, "=")
			if key == "" {
				return flusso.StageSpec{}, fmt.Errorf("stage spec %q: empty option key", spec)
			}

			opts[key] = value
		}
	}

	return flusso.StageSpec{Name: name, Options: opts}, nil
}
