package parsers

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/Vodeneev/sharpedge/internal/pkg/config"
)

type Factory func(cfg *config.Config) (Adapter, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

func Register(name string, f Factory) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		panic("parsers: empty name in Register")
	}
	if f == nil {
		panic("parsers: nil factory in Register for " + n)
	}

	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := registry[n]; exists {
		panic("parsers: duplicate registration for " + n)
	}
	registry[n] = f
}

func FactoryByName(name string) (Factory, bool) {
	n := strings.ToLower(strings.TrimSpace(name))
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := registry[n]
	return f, ok
}

func AvailableNames() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Build creates the named adapters in order, skipping duplicates.
func Build(cfg *config.Config, names []string) ([]Adapter, error) {
	seen := make(map[string]bool, len(names))
	adapters := make([]Adapter, 0, len(names))
	for _, name := range names {
		n := strings.ToLower(strings.TrimSpace(name))
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true

		f, ok := FactoryByName(n)
		if !ok {
			return nil, fmt.Errorf("unknown parser %q (available: %v)", name, AvailableNames())
		}
		a, err := f(cfg)
		if err != nil {
			return nil, fmt.Errorf("build parser %s: %w", n, err)
		}
		adapters = append(adapters, a)
	}
	return adapters, nil
}
