package domain

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed builtin.yaml
var builtinYAML []byte

// File is the on-disk layout of a knowledge file.
type File struct {
	Systems []Knowledge `yaml:"systems"`
}

// Registry maps system types to knowledge tables. It is safe for
// concurrent use.
type Registry struct {
	mu      sync.RWMutex
	systems map[string]*Knowledge
}

// NewRegistry returns a registry preloaded with the built-in system types.
func NewRegistry() (*Registry, error) {
	r := &Registry{systems: make(map[string]*Knowledge)}
	if err := r.load(builtinYAML); err != nil {
		return nil, fmt.Errorf("domain: builtin knowledge: %w", err)
	}
	return r, nil
}

// LoadFile merges the systems declared in a YAML file, replacing built-ins
// with the same system type.
func (r *Registry) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("domain: read file: %w", err)
	}
	if err := r.load(data); err != nil {
		return fmt.Errorf("domain: %s: %w", path, err)
	}
	return nil
}

func (r *Registry) load(data []byte) error {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parse yaml: %w", err)
	}
	for i := range f.Systems {
		if err := r.Register(f.Systems[i]); err != nil {
			return err
		}
	}
	return nil
}

// Register adds or replaces a knowledge table.
func (r *Registry) Register(k Knowledge) error {
	key := normalize(k.SystemType)
	if key == "" {
		return fmt.Errorf("system_type is required")
	}
	for _, c := range k.Correlations {
		if c.Sign != 1 && c.Sign != -1 {
			return fmt.Errorf("%s: correlation %s/%s: sign must be 1 or -1", key, c.A, c.B)
		}
	}
	for p, rg := range k.NormalRanges {
		if rg.Min > rg.Max {
			return fmt.Errorf("%s: normal range %s: min > max", key, p)
		}
	}
	k.SystemType = key
	r.mu.Lock()
	r.systems[key] = &k
	r.mu.Unlock()
	return nil
}

// Lookup returns the knowledge for systemType. Unknown types degrade to
// the generic table; found reports whether the exact type was known.
func (r *Registry) Lookup(systemType string) (k *Knowledge, found bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if k, ok := r.systems[normalize(systemType)]; ok {
		return k, true
	}
	slog.Warn("domain: unknown system type, using generic knowledge", "system_type", systemType)
	if k, ok := r.systems[GenericSystemType]; ok {
		return k, false
	}
	return &Knowledge{SystemType: GenericSystemType}, false
}

// Types lists the registered system types in sorted order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.systems))
	for k := range r.systems {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func normalize(systemType string) string {
	s := strings.ToLower(strings.TrimSpace(systemType))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(s)
}
