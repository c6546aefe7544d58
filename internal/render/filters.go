package render

import (
	"encoding/json"
	"fmt"
	"html/template"
	"math"
	"net/url"
	"regexp"
	"strings"
	"time"
)

const (
	defaultDateLayout = "January 2, 2006"
	wordsPerMinute    = 200
)

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// assetCollector accumulates the asset references a render touches, in
// first-use order, deduplicated.
type assetCollector struct {
	seen map[string]bool
	css  []string
	js   []string
}

func newAssetCollector() *assetCollector {
	return &assetCollector{seen: make(map[string]bool)}
}

func (c *assetCollector) add(assetURL string) {
	if c.seen[assetURL] {
		return
	}
	c.seen[assetURL] = true
	switch {
	case strings.HasSuffix(assetURL, ".css"):
		c.css = append(c.css, assetURL)
	case strings.HasSuffix(assetURL, ".js"):
		c.js = append(c.js, assetURL)
	}
}

// AssetManifest is the deduplicated {css, js} reference list returned
// alongside rendered HTML; assets are never inlined.
type AssetManifest struct {
	CSS []string `json:"css"`
	JS  []string `json:"js"`
}

func (c *assetCollector) manifest() AssetManifest {
	m := AssetManifest{CSS: c.css, JS: c.js}
	if m.CSS == nil {
		m.CSS = []string{}
	}
	if m.JS == nil {
		m.JS = []string{}
	}
	return m
}

// funcMap builds the fixed helper set available to section and layout
// templates. asset_url feeds the collector as a side effect so the
// manifest reflects exactly what the render touched.
func funcMap(identity string, collector *assetCollector) template.FuncMap {
	return template.FuncMap{
		"asset_url": func(v any) string {
			name := strings.TrimPrefix(strings.TrimPrefix(toStr(v), "assets/"), "/")
			u := "/themes/" + identity + "/assets/" + name
			collector.add(u)
			return u
		},
		"media_url":     mediaURL,
		"truncatewords": truncateWords,
		"strip_html":    stripHTML,
		"reading_time":  readingTime,
		"date":          formatDate,
		"date_format":   formatDateWith,
		"url_encode": func(v any) string {
			return url.QueryEscape(toStr(v))
		},
		"json": func(v any) (string, error) {
			raw, err := json.Marshal(v)
			if err != nil {
				return "", err
			}
			return string(raw), nil
		},
	}
}

// mediaURL passes absolute URLs through untouched and prefixes relative
// paths with the media base.
func mediaURL(v any) string {
	s := toStr(v)
	if s == "" {
		return ""
	}
	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "//") {
		return s
	}
	return "/media/" + strings.TrimPrefix(s, "/")
}

func truncateWords(v any, n int) string {
	words := strings.Fields(toStr(v))
	if n <= 0 || len(words) <= n {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:n], " ") + "..."
}

func stripHTML(v any) string {
	return strings.TrimSpace(tagPattern.ReplaceAllString(toStr(v), ""))
}

// readingTime estimates minutes to read: words / 200, rounded up, at
// least 1.
func readingTime(v any) int {
	words := len(strings.Fields(stripHTML(v)))
	minutes := int(math.Ceil(float64(words) / wordsPerMinute))
	if minutes < 1 {
		return 1
	}
	return minutes
}

func formatDate(v any) string {
	return formatDateWith(v, defaultDateLayout)
}

func formatDateWith(v any, layout string) string {
	if layout == "" {
		layout = defaultDateLayout
	}
	switch t := v.(type) {
	case time.Time:
		return t.Format(layout)
	case *time.Time:
		if t == nil {
			return ""
		}
		return t.Format(layout)
	case string:
		if parsed, err := time.Parse(time.RFC3339, t); err == nil {
			return parsed.Format(layout)
		}
		return t
	default:
		return toStr(v)
	}
}

func toStr(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case template.HTML:
		return string(s)
	case []byte:
		return string(s)
	default:
		return fmt.Sprint(v)
	}
}
