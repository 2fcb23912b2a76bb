package plugin

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// moduleExtension is the file extension of loadable plugin modules.
const moduleExtension = ".so"

// moduleLoader finds and loads external plugin modules. A module, once
// opened, is expected to self-register its factory for exactly one kind
// under the requested name as an initialization side effect; a module
// that fails to do so is a load failure, never a process crash.
type moduleLoader struct {
	searchPaths []string

	mux    sync.Mutex
	loaded map[string]struct{}
}

func newModuleLoader(searchPaths []string) *moduleLoader {
	return &moduleLoader{
		searchPaths: searchPaths,

		loaded: make(map[string]struct{}),
	}
}

// load opens the module named after the plugin, looked up in the search
// paths in order.
func (ml *moduleLoader) load(name string) error {
	for _, dir := range ml.searchPaths {
		modPath := filepath.Join(dir, name+moduleExtension)

		if _, err := os.Stat(modPath); err != nil {
			continue
		}

		return ml.loadPath(modPath)
	}

	return fmt.Errorf("no module for plugin %q in search paths", name)
}

// loadPath opens the module at the given path, once per process.
func (ml *moduleLoader) loadPath(modPath string) error {
	ml.mux.Lock()
	defer ml.mux.Unlock()

	if _, ok := ml.loaded[modPath]; ok {
		return nil
	}

	if err := openModule(modPath); err != nil {
		return err
	}

	ml.loaded[modPath] = struct{}{}

	return nil
}

// discover returns the paths of every loadable module in the search paths.
func (ml *moduleLoader) discover() []string {
	var modPaths []string

	for _, dir := range ml.searchPaths {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}

		for _, entry := range entries {
			if entry.IsDir() || filepath.Ext(entry.Name()) != moduleExtension {
				continue
			}

			modPaths = append(modPaths, filepath.Join(dir, entry.Name()))
		}
	}

	return modPaths
}
