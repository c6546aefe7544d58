package render

import "sort"

// Source is a readable file set the renderer consumes: either a draft
// workspace (preview) or a published version (live). Identity keys the
// render cache, so two sources with the same identity must expose the
// same bytes.
type Source interface {
	Identity() string
	Kind() string
	File(path string) ([]byte, bool)
	Paths() []string
}

const (
	SourceKindDraft     = "draft"
	SourceKindPublished = "published"
)

type mapSource struct {
	identity string
	kind     string
	files    map[string][]byte
}

// NewMapSource wraps an in-memory file set as a Source.
func NewMapSource(identity, kind string, files map[string][]byte) Source {
	if files == nil {
		files = map[string][]byte{}
	}
	return &mapSource{identity: identity, kind: kind, files: files}
}

func (s *mapSource) Identity() string { return s.identity }
func (s *mapSource) Kind() string     { return s.kind }

func (s *mapSource) File(path string) ([]byte, bool) {
	content, ok := s.files[path]
	return content, ok
}

func (s *mapSource) Paths() []string {
	out := make([]string, 0, len(s.files))
	for p := range s.files {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
