// Package modules holds the built-in transformation modules and the registry
// that builds them from configuration.
package modules

import (
	"fmt"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	ferrors "git.home.luguber.info/inful/sitepipe/internal/foundation/errors"
	"git.home.luguber.info/inful/sitepipe/internal/pipeline"
)

// Constructor builds a module from its YAML arguments. args is nil when the
// configuration gave none.
type Constructor func(args *yaml.Node) (pipeline.Module, error)

// Registry maps module names to constructors.
type Registry struct {
	mu    sync.RWMutex
	ctors map[string]Constructor
}

// NewRegistry returns a registry holding every built-in module.
func NewRegistry() *Registry {
	r := &Registry{ctors: make(map[string]Constructor)}
	r.Register("read_files", newReadFiles)
	r.Register("front_matter", newFrontMatter)
	r.Register("markdown", newMarkdown)
	r.Register("html_title", newHTMLTitle)
	r.Register("set_metadata", newSetMetadata)
	r.Register("set_extension", newSetExtension)
	r.Register("fingerprint", newFingerprint)
	r.Register("git_info", newGitInfo)
	r.Register("from_pipelines", newFromPipelines)
	r.Register("write_files", newWriteFiles)
	return r
}

// Register adds or replaces a constructor.
func (r *Registry) Register(name string, ctor Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ctors[name] = ctor
}

// Names lists registered module names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.ctors))
	for n := range r.ctors {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Build constructs the named module.
func (r *Registry) Build(name string, args *yaml.Node) (pipeline.Module, error) {
	r.mu.RLock()
	ctor, ok := r.ctors[name]
	r.mu.RUnlock()
	if !ok {
		return nil, ferrors.ConfigError(fmt.Sprintf("unknown module %q", name)).
			WithContext("module", name).
			Build()
	}
	m, err := ctor(args)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, fmt.Sprintf("invalid arguments for module %q", name)).
			WithContext("module", name).
			Build()
	}
	return pipeline.WithName(name, m), nil
}

// decode fills out from args; nil args leave out untouched.
func decode(args *yaml.Node, out any) error {
	if args == nil || args.Kind == 0 {
		return nil
	}
	return args.Decode(out)
}
