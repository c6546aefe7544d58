package render

import (
	"testing"
	"time"
)

func TestTruncateWords(t *testing.T) {
	cases := []struct {
		in   string
		n    int
		want string
	}{
		{"one two three four", 2, "one two..."},
		{"one two", 5, "one two"},
		{"one two", 0, "one two"},
		{"", 3, ""},
	}
	for _, tc := range cases {
		if got := truncateWords(tc.in, tc.n); got != tc.want {
			t.Errorf("truncateWords(%q, %d) = %q, want %q", tc.in, tc.n, got, tc.want)
		}
	}
}

func TestStripHTML(t *testing.T) {
	if got := stripHTML(`<p>Hello <b>world</b></p>`); got != "Hello world" {
		t.Errorf("stripHTML = %q", got)
	}
	if got := stripHTML("plain"); got != "plain" {
		t.Errorf("stripHTML(plain) = %q", got)
	}
}

func TestReadingTime(t *testing.T) {
	if got := readingTime(""); got != 1 {
		t.Errorf("empty text reading_time = %d, want 1", got)
	}
	long := ""
	for i := 0; i < 450; i++ {
		long += "word "
	}
	if got := readingTime(long); got != 3 {
		t.Errorf("450 words reading_time = %d, want 3", got)
	}
}

func TestFormatDate(t *testing.T) {
	ts := time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC)
	if got := formatDate(ts); got != "March 5, 2024" {
		t.Errorf("formatDate = %q", got)
	}
	if got := formatDate("2024-03-05T00:00:00Z"); got != "March 5, 2024" {
		t.Errorf("formatDate(rfc3339 string) = %q", got)
	}
	if got := formatDate("not a date"); got != "not a date" {
		t.Errorf("formatDate(garbage) = %q", got)
	}
}

func TestMediaURL(t *testing.T) {
	if got := mediaURL("https://cdn.example.com/a.png"); got != "https://cdn.example.com/a.png" {
		t.Errorf("absolute url changed: %q", got)
	}
	if got := mediaURL("images/a.png"); got != "/media/images/a.png" {
		t.Errorf("relative path = %q", got)
	}
	if got := mediaURL(""); got != "" {
		t.Errorf("empty = %q", got)
	}
}

func TestAssetCollectorDedup(t *testing.T) {
	c := newAssetCollector()
	c.add("/themes/x/assets/a.css")
	c.add("/themes/x/assets/a.css")
	c.add("/themes/x/assets/b.js")
	m := c.manifest()
	if len(m.CSS) != 1 || len(m.JS) != 1 {
		t.Fatalf("manifest = %+v", m)
	}
}
