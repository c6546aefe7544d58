package runtime

import "testing"

type stubHandler struct{ jobType string }

func (h *stubHandler) Type() string       { return h.jobType }
func (h *stubHandler) Run(*Context) error { return nil }

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&stubHandler{jobType: "theme_sync"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(&stubHandler{jobType: "theme_sync"}); err == nil {
		t.Fatalf("duplicate registration should fail")
	}
	if err := r.Register(&stubHandler{}); err == nil {
		t.Fatalf("empty type should fail")
	}
	if err := r.Register(nil); err == nil {
		t.Fatalf("nil handler should fail")
	}

	if _, ok := r.Get("theme_sync"); !ok {
		t.Fatalf("registered handler not found")
	}
	if _, ok := r.Get("unknown"); ok {
		t.Fatalf("unknown type should miss")
	}
}
