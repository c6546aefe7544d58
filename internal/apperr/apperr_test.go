package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestExitCode(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, 0},
		{Validation("bad input"), 1},
		{NotFound("theme dawn"), 2},
		{IO("read root", errors.New("permission denied")), 3},
		{errors.New("something else"), 3},
	}
	for _, tc := range cases {
		if got := ExitCode(tc.err); got != tc.want {
			t.Errorf("ExitCode(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{NotFound("x"), http.StatusNotFound},
		{Validation("x"), http.StatusUnprocessableEntity},
		{fmt.Errorf("busy: %w", ErrConflict), http.StatusConflict},
		{IO("x", errors.New("y")), http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
		{New(http.StatusTeapot, "teapot", nil), http.StatusTeapot},
	}
	for _, tc := range cases {
		if got := HTTPStatus(tc.err); got != tc.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestCode(t *testing.T) {
	if got := Code(NotFound("x")); got != "not_found" {
		t.Errorf("Code = %q", got)
	}
	if got := Code(fmt.Errorf("r: %w", ErrRender)); got != "render_error" {
		t.Errorf("Code = %q", got)
	}
	if got := Code(New(0, "custom_code", nil)); got != "custom_code" {
		t.Errorf("Code = %q", got)
	}
}

func TestValidationErrorsUnwrap(t *testing.T) {
	err := Validation("publish blocked", FieldError{Path: "templates/index.json", Message: "unknown section type"})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("field errors should classify as validation")
	}
	var ve *ValidationErrors
	if !errors.As(err, &ve) {
		t.Fatalf("expected wrapped *ValidationErrors")
	}
	if len(ve.Errors) != 1 || ve.Errors[0].Path != "templates/index.json" {
		t.Errorf("fields = %+v", ve.Errors)
	}
}

func TestValidationErrorsAdd(t *testing.T) {
	ve := &ValidationErrors{}
	if !ve.Empty() {
		t.Fatalf("new collector should be empty")
	}
	ve.Add("config/settings_data.json", "", "not a JSON object")
	ve.Add("templates/page.json", "order", "references undefined section")
	if ve.Empty() || len(ve.Errors) != 2 {
		t.Fatalf("collector = %+v", ve)
	}
}
