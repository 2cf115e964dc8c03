package media

import (
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/yi-nology/mediable/pkg/imageproc"
	"github.com/yi-nology/mediable/pkg/mediaerr"
	"github.com/yi-nology/mediable/pkg/validator"
)

// Registry maps conversion names onto transforms and tracks the subset
// generated automatically for uploads. It is safe for concurrent use.
type Registry struct {
	mu          sync.RWMutex
	conversions map[string]imageproc.Transform
	global      []string
}

func NewRegistry() *Registry {
	return &Registry{conversions: make(map[string]imageproc.Transform)}
}

// Register adds or replaces the transform under name. It panics on names
// that are not valid conversion names, like http.Handle does on bad patterns.
func (r *Registry) Register(name string, fn imageproc.Transform) {
	if !validator.ValidConversionName(name) {
		panic(fmt.Sprintf("media: invalid conversion name %q", name))
	}
	if fn == nil {
		panic("media: nil transform for " + name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conversions[name] = fn
}

// RegisterPresets registers a transform for every preset.
func (r *Registry) RegisterPresets(presets []imageproc.Preset) error {
	for _, p := range presets {
		name, ok := validator.SanitizeConversionName(p.Name)
		if !ok {
			return fmt.Errorf("register preset: invalid conversion name %q", p.Name)
		}
		p.Name = name
		fn, err := p.Transform()
		if err != nil {
			return fmt.Errorf("register preset: %w", err)
		}
		r.Register(p.Name, fn)
	}
	return nil
}

// Get returns the transform registered under name.
func (r *Registry) Get(name string) (imageproc.Transform, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.conversions[name]
	if !ok {
		return nil, mediaerr.UnknownConversion(name)
	}
	return fn, nil
}

func (r *Registry) Exists(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.conversions[name]
	return ok
}

// List returns the registered names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.conversions))
	for name := range r.conversions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SetGlobal replaces the global list.
func (r *Registry) SetGlobal(names []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.global = nil
	r.appendGlobal(names)
}

// RegisterGlobal appends names to the global list, skipping duplicates.
func (r *Registry) RegisterGlobal(names ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.appendGlobal(names)
}

func (r *Registry) appendGlobal(names []string) {
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name != "" && !slices.Contains(r.global, name) {
			r.global = append(r.global, name)
		}
	}
}

// ListGlobal returns the global names in registration order. Names need not
// be registered yet; that is checked when they are applied.
func (r *Registry) ListGlobal() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.global)
}
