package scanner

import (
	"embed"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

const rolesRulesEnv = "SCANNER_ROLES_YAML"

//go:embed roles.yaml
var rolesFS embed.FS

type roleRule struct {
	Prefix string `yaml:"prefix"`
	Role   string `yaml:"role"`
}

type roleRules struct {
	Rules   []roleRule `yaml:"rules"`
	Default string     `yaml:"default"`
}

// fallback table used when the YAML is missing or invalid
var fallbackRules = roleRules{
	Rules: []roleRule{
		{Prefix: "templates/", Role: "template"},
		{Prefix: "sections/", Role: "section"},
		{Prefix: "layout/", Role: "layout"},
		{Prefix: "assets/", Role: "asset"},
		{Prefix: "config/", Role: "config"},
	},
	Default: "other",
}

var (
	rulesOnce   sync.Once
	loadedRules roleRules
)

func activeRules() roleRules {
	rulesOnce.Do(func() {
		loadedRules = fallbackRules
		raw, err := readRulesYAML()
		if err != nil {
			return
		}
		var parsed roleRules
		if err := yaml.Unmarshal(raw, &parsed); err != nil {
			return
		}
		if len(parsed.Rules) == 0 {
			return
		}
		if parsed.Default == "" {
			parsed.Default = fallbackRules.Default
		}
		loadedRules = parsed
	})
	return loadedRules
}

func readRulesYAML() ([]byte, error) {
	if path := strings.TrimSpace(os.Getenv(rolesRulesEnv)); path != "" {
		if raw, err := os.ReadFile(path); err == nil {
			return raw, nil
		}
	}
	return rolesFS.ReadFile("roles.yaml")
}

// ClassifyRole maps a theme-root-relative path to its file role. The rule
// table is deterministic: first prefix match wins, unmatched paths get
// the default role.
func ClassifyRole(path string) string {
	path = strings.TrimPrefix(strings.ReplaceAll(path, "\\", "/"), "/")
	rules := activeRules()
	for _, rule := range rules.Rules {
		if strings.HasPrefix(path, rule.Prefix) {
			return rule.Role
		}
	}
	return rules.Default
}
