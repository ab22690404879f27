// Package tools tracks the tool declarations an agent may offer to its
// model: names, eino schemas, hosting servers and the legacy-alias table
// the policy layer matches rules against.
package tools

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/cloudwego/eino/schema"
)

// Declaration describes one registered tool: its eino declaration plus the
// server hosting it (empty for built-in tools).
type Declaration struct {
	Info   *schema.ToolInfo
	Server string
}

// Registry manages tool declarations and legacy aliases by name.
type Registry struct {
	mu      sync.RWMutex
	decls   map[string]Declaration
	aliases map[string]string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		decls:   make(map[string]Declaration),
		aliases: make(map[string]string),
	}
}

// Register adds a tool declaration.
func (r *Registry) Register(decl Declaration) error {
	if decl.Info == nil || strings.TrimSpace(decl.Info.Name) == "" {
		return fmt.Errorf("tool info missing name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	name := decl.Info.Name
	if _, exists := r.decls[name]; exists {
		return fmt.Errorf("tool already registered: %s", name)
	}
	r.decls[name] = decl
	return nil
}

// RegisterAlias records that legacy is an old name for canonical, so
// policy rules written against either name match calls using either.
func (r *Registry) RegisterAlias(legacy, canonical string) error {
	legacy = strings.TrimSpace(legacy)
	canonical = strings.TrimSpace(canonical)
	if legacy == "" || canonical == "" {
		return fmt.Errorf("alias names are required")
	}
	if legacy == canonical {
		return fmt.Errorf("alias %q maps to itself", legacy)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.aliases[legacy]; ok && existing != canonical {
		return fmt.Errorf("alias %q already maps to %q", legacy, existing)
	}
	r.aliases[legacy] = canonical
	return nil
}

// Aliases returns a copy of the legacy→canonical alias table.
func (r *Registry) Aliases() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]string, len(r.aliases))
	for legacy, canonical := range r.aliases {
		out[legacy] = canonical
	}
	return out
}

// Get retrieves a declaration by name.
func (r *Registry) Get(name string) (Declaration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	decl, ok := r.decls[name]
	return decl, ok
}

// Remove drops a declaration, used when a dynamic tool source goes away.
func (r *Registry) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.decls, name)
}

// Declarations returns all declarations sorted by tool name.
func (r *Registry) Declarations() []Declaration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Declaration, 0, len(r.decls))
	for _, decl := range r.decls {
		out = append(out, decl)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Info.Name < out[j].Info.Name })
	return out
}

// Offered returns the tool declarations that survive the excluded-tools
// projection: a tool is withheld when its own name or its server's
// wildcard pattern is excluded.
func (r *Registry) Offered(excluded map[string]struct{}) []*schema.ToolInfo {
	var infos []*schema.ToolInfo
	for _, decl := range r.Declarations() {
		if _, ok := excluded[decl.Info.Name]; ok {
			continue
		}
		if decl.Server != "" {
			if _, ok := excluded[decl.Server+"__*"]; ok {
				continue
			}
		}
		infos = append(infos, decl.Info)
	}
	return infos
}
