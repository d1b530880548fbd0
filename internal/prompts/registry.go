// Package prompts provides centralized template management for the three
// AI-driven phase handlers (planner, implementer, reviewer). Prompts are
// stored as text/template files and embedded at compile time, grounded in
// the teacher's internal/prompts package (embed.FS + a small template
// registry keyed by a PromptID, rather than string concatenation scattered
// across call sites).
package prompts

import (
	"embed"
	"fmt"
	"strings"
	"sync"
	"text/template"
)

//go:embed templates/plan/*.tmpl templates/implement/*.tmpl templates/review/*.tmpl
var templateFS embed.FS

type registry struct {
	mu        sync.RWMutex
	templates map[PromptID]*template.Template
}

//nolint:gochecknoglobals // singleton pattern for template registry, matching the teacher's prompts package
var globalRegistry = &registry{
	templates: make(map[PromptID]*template.Template),
}

//nolint:gochecknoinits // required to preload embedded templates at package initialization
func init() {
	if err := globalRegistry.loadAll(); err != nil {
		// Templates are embedded, so this should never fail at runtime.
		panic(fmt.Sprintf("failed to load embedded prompt templates: %v", err))
	}
}

func (r *registry) loadAll() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := map[PromptID]string{
		Planner:     "templates/plan/planner.tmpl",
		Implementer: "templates/implement/implementer.tmpl",
		Reviewer:    "templates/review/reviewer.tmpl",
	}
	for id, path := range entries {
		content, err := templateFS.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading template %s: %w", path, err)
		}
		tmpl, err := template.New(string(id)).Funcs(funcMap()).Parse(string(content))
		if err != nil {
			return fmt.Errorf("parsing template %s: %w", path, err)
		}
		r.templates[id] = tmpl
	}
	return nil
}

func (r *registry) get(id PromptID) (*template.Template, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tmpl, ok := r.templates[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, id)
	}
	return tmpl, nil
}

func funcMap() template.FuncMap {
	return template.FuncMap{
		"join": strings.Join,
	}
}
