package plugin

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/FerroO2000/flusso/telemetry"
)

// InputFactory allocates a new input plugin instance.
type InputFactory func() Input

// ProcessorFactory allocates a new processor plugin instance.
type ProcessorFactory func() Processor

// OutputFactory allocates a new output plugin instance.
type OutputFactory func() Output

// Registry is a repository of plugin factories, keyed by name within
// three independent kind namespaces. The same name may exist once per
// kind; re-registering a name within a kind overwrites the previous
// entry (last writer wins).
//
// Registrations happen during process startup, before any pipeline is
// assembled; lookups are safe under concurrent access. A failed lookup
// is always a reportable result, never a process abort.
type Registry struct {
	mux sync.RWMutex

	inputs     map[string]InputFactory
	processors map[string]ProcessorFactory
	outputs    map[string]OutputFactory

	// loader is non-nil when dynamic provisioning is allowed.
	loader *moduleLoader
}

// NewRegistry returns a new empty registry with dynamic loading disabled.
func NewRegistry() *Registry {
	return &Registry{
		inputs:     make(map[string]InputFactory),
		processors: make(map[string]ProcessorFactory),
		outputs:    make(map[string]OutputFactory),
	}
}

var (
	defaultRegistry     *Registry
	defaultRegistryOnce sync.Once
)

// Default returns the process-wide registry. Externally loaded modules
// self-register against it.
func Default() *Registry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = NewRegistry()
	})

	return defaultRegistry
}

// AllowDynamicLoading enables loading plugins from shared modules found
// in the given search paths. When never called, only registered
// factories are resolvable.
func (r *Registry) AllowDynamicLoading(searchPaths ...string) {
	r.mux.Lock()
	defer r.mux.Unlock()

	r.loader = newModuleLoader(searchPaths)
}

// RegisterInput registers an input plugin factory under the given name.
// A nil factory is ignored.
func (r *Registry) RegisterInput(name string, factory InputFactory) {
	if factory == nil {
		return
	}

	r.mux.Lock()
	defer r.mux.Unlock()

	r.inputs[name] = factory
}

// RegisterProcessor registers a processor plugin factory under the given name.
// A nil factory is ignored.
func (r *Registry) RegisterProcessor(name string, factory ProcessorFactory) {
	if factory == nil {
		return
	}

	r.mux.Lock()
	defer r.mux.Unlock()

	r.processors[name] = factory
}

// RegisterOutput registers an output plugin factory under the given name.
// A nil factory is ignored.
func (r *Registry) RegisterOutput(name string, factory OutputFactory) {
	if factory == nil {
		return
	}

	r.mux.Lock()
	defer r.mux.Unlock()

	r.outputs[name] = factory
}

// GetInput resolves an input plugin factory by name.
// If not found and dynamic loading is allowed, it tries to load a module
// expected to self-register under the name, then retries the lookup once.
func (r *Registry) GetInput(name string, tel *telemetry.Telemetry) (InputFactory, error) {
	r.mux.RLock()
	factory, ok := r.inputs[name]
	r.mux.RUnlock()

	if ok {
		return factory, nil
	}

	if r.tryLoadModule(name, tel) {
		r.mux.RLock()
		factory, ok = r.inputs[name]
		r.mux.RUnlock()

		if ok {
			return factory, nil
		}
	}

	return nil, fmt.Errorf("input plugin %q: %w", name, ErrNotFound)
}

// GetProcessor resolves a processor plugin factory by name.
// If not found and dynamic loading is allowed, it tries to load a module
// expected to self-register under the name, then retries the lookup once.
func (r *Registry) GetProcessor(name string, tel *telemetry.Telemetry) (ProcessorFactory, error) {
	r.mux.RLock()
	factory, ok := r.processors[name]
	r.mux.RUnlock()

	if ok {
		return factory, nil
	}

	if r.tryLoadModule(name, tel) {
		r.mux.RLock()
		factory, ok = r.processors[name]
		r.mux.RUnlock()

		if ok {
			return factory, nil
		}
	}

	return nil, fmt.Errorf("processor plugin %q: %w", name, ErrNotFound)
}

// GetOutput resolves an output plugin factory by name.
// If not found and dynamic loading is allowed, it tries to load a module
// expected to self-register under the name, then retries the lookup once.
func (r *Registry) GetOutput(name string, tel *telemetry.Telemetry) (OutputFactory, error) {
	r.mux.RLock()
	factory, ok := r.outputs[name]
	r.mux.RUnlock()

	if ok {
		return factory, nil
	}

	if r.tryLoadModule(name, tel) {
		r.mux.RLock()
		factory, ok = r.outputs[name]
		r.mux.RUnlock()

		if ok {
			return factory, nil
		}
	}

	return nil, fmt.Errorf("output plugin %q: %w", name, ErrNotFound)
}

// tryLoadModule attempts to dynamically load the module for the given
// name. It returns true when a retry of the lookup makes sense.
func (r *Registry) tryLoadModule(name string, tel *telemetry.Telemetry) bool {
	r.mux.RLock()
	loader := r.loader
	r.mux.RUnlock()

	if loader == nil {
		return false
	}

	if err := loader.load(name); err != nil {
		tel.LogWarn("failed to load plugin module", "plugin", name, "error", err)
		return false
	}

	return true
}

// Count returns the number of factories registered for the kind.
func (r *Registry) Count(kind Kind) int {
	r.mux.RLock()
	defer r.mux.RUnlock()

	switch kind {
	case KindInput:
		return len(r.inputs)
	case KindProcessor:
		return len(r.processors)
	case KindOutput:
		return len(r.outputs)
	default:
		return 0
	}
}

// LoadAll eagerly loads every module found in the search paths.
// A single module's load failure is logged and skipped, never aborting
// the scan. It does nothing when dynamic loading is disabled.
func (r *Registry) LoadAll(tel *telemetry.Telemetry) {
	r.mux.RLock()
	loader := r.loader
	r.mux.RUnlock()

	if loader == nil {
		return
	}

	for _, modPath := range loader.discover() {
		if err := loader.loadPath(modPath); err != nil {
			tel.LogWarn("skipping plugin module", "path", modPath, "error", err)
		}
	}
}

// List returns a human-readable inventory of all registered plugins
// across kinds, optionally after eager loading.
func (r *Registry) List(loadAll bool, tel *telemetry.Telemetry) string {
	if loadAll {
		r.LoadAll(tel)
	}

	r.mux.RLock()
	defer r.mux.RUnlock()

	var sb strings.Builder

	listKind(&sb, "Input plugins", sortedNames(r.inputs))
	listKind(&sb, "Processor plugins", sortedNames(r.processors))
	listKind(&sb, "Output plugins", sortedNames(r.outputs))

	return sb.String()
}

func sortedNames[F any](table map[string]F) []string {
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

func listKind(sb *strings.Builder, title string, names []string) {
	fmt.Fprintf(sb, "%s (%d):\n", title, len(names))

	for _, name := range names {
		fmt.Fprintf(sb, "  %s\n", name)
	}

	sb.WriteByte('\n')
}
