package render

import (
	"fmt"
	"sync"

	"github.com/pagecraft/pagecraft-backend/internal/apperr"
)

// SectionDefinition is the markup definition for one section type. Theme
// files under sections/<type>.html take precedence over registered
// built-ins at render and validation time.
type SectionDefinition struct {
	Type   string
	Markup string
}

// Registry maps section type keys to definitions. Populated at startup;
// unknown keys are a handled not-found, never a dynamic dispatch failure.
type Registry struct {
	mu   sync.RWMutex
	defs map[string]SectionDefinition
}

func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]SectionDefinition)}
}

func (r *Registry) Register(def SectionDefinition) error {
	if def.Type == "" {
		return fmt.Errorf("section definition type is empty")
	}
	if def.Markup == "" {
		return fmt.Errorf("section definition markup is empty for type=%s", def.Type)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.defs[def.Type]; exists {
		return fmt.Errorf("section definition already registered for type=%s", def.Type)
	}
	r.defs[def.Type] = def
	return nil
}

func (r *Registry) Get(sectionType string) (SectionDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[sectionType]
	if !ok {
		return SectionDefinition{}, apperr.NotFound("section type " + sectionType)
	}
	return def, nil
}

func (r *Registry) Has(sectionType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.defs[sectionType]
	return ok
}

func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.defs))
	for t := range r.defs {
		out = append(out, t)
	}
	return out
}

// NewDefaultRegistry returns the built-in section set every theme can
// reference without shipping its own markup.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	builtins := []SectionDefinition{
		{Type: "hero", Markup: builtinHero},
		{Type: "rich_text", Markup: builtinRichText},
		{Type: "image_banner", Markup: builtinImageBanner},
		{Type: "newsletter", Markup: builtinNewsletter},
		{Type: "footer", Markup: builtinFooter},
	}
	for _, def := range builtins {
		// Register only fails on duplicates or empty fields; the
		// builtin table has neither.
		_ = r.Register(def)
	}
	return r
}

const builtinHero = `<section class="section section-hero" data-section-id="{{ .ID }}">
  <div class="hero-inner">
    <h1 class="hero-title">{{ .Settings.title }}</h1>
    {{ if .Settings.subtitle }}<p class="hero-subtitle">{{ .Settings.subtitle }}</p>{{ end }}
    {{ if .Settings.button_label }}<a class="hero-button" href="{{ .Settings.button_url }}">{{ .Settings.button_label }}</a>{{ end }}
  </div>
</section>`

const builtinRichText = `<section class="section section-rich-text" data-section-id="{{ .ID }}">
  {{ if .Settings.heading }}<h2>{{ .Settings.heading }}</h2>{{ end }}
  <div class="rich-text-body">{{ .Settings.body }}</div>
</section>`

const builtinImageBanner = `<section class="section section-image-banner" data-section-id="{{ .ID }}">
  <img src="{{ media_url .Settings.image }}" alt="{{ .Settings.alt }}"/>
  {{ if .Settings.caption }}<figcaption>{{ .Settings.caption }}</figcaption>{{ end }}
</section>`

const builtinNewsletter = `<section class="section section-newsletter" data-section-id="{{ .ID }}">
  <h2>{{ .Settings.heading }}</h2>
  <form method="post" action="{{ .Settings.action }}">
    <input type="email" name="email" placeholder="{{ .Settings.placeholder }}"/>
    <button type="submit">{{ .Settings.button_label }}</button>
  </form>
</section>`

const builtinFooter = `<footer class="section section-footer" data-section-id="{{ .ID }}">
  <p>{{ .Settings.text }}</p>
</footer>`
