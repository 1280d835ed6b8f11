package validation

import (
	"strings"
	"testing"

	"github.com/kbukum/voxkit/errors"
)

func TestValidatorRequired(t *testing.T) {
	v := New()
	v.Required("name", "John")
	if v.HasErrors() {
		t.Error("expected no errors for valid input")
	}

	v2 := New()
	v2.Required("name", "")
	if !v2.HasErrors() {
		t.Error("expected error for empty required field")
	}

	v3 := New()
	v3.Required("name", "   ")
	if !v3.HasErrors() {
		t.Error("expected error for whitespace-only required field")
	}
}

func TestValidatorOneOf(t *testing.T) {
	allowed := []string{"brief", "detailed"}
	if New().OneOf("style", "brief", allowed).HasErrors() {
		t.Error("expected no error for allowed value")
	}
	if New().OneOf("style", "", allowed).HasErrors() {
		t.Error("empty value is left to Required")
	}
	if !New().OneOf("style", "poem", allowed).HasErrors() {
		t.Error("expected error for disallowed value")
	}
}

func TestValidatorUnique(t *testing.T) {
	v := New().Unique("providers", []string{"a", "b", "a", "a"})
	if len(v.Errors()) != 2 {
		t.Errorf("expected one error per duplicate, got %v", v.Errors())
	}
}

func TestValidatorValidate(t *testing.T) {
	if New().Validate() != nil {
		t.Error("expected nil without errors")
	}
	appErr := New().Required("selection.transcription", "").Positive("audio.max_bytes", 0).Validate()
	if appErr == nil || appErr.Code != errors.ErrCodeConfigInvalid {
		t.Fatalf("expected CONFIG_INVALID, got %v", appErr)
	}
	if appErr.Metadata["field"] != "selection.transcription" {
		t.Errorf("first field should be reported, got %v", appErr.Metadata)
	}
	if !strings.Contains(appErr.Message, "audio.max_bytes must be greater than 0") {
		t.Errorf("unexpected message %q", appErr.Message)
	}
}

func TestValidatorChaining(t *testing.T) {
	v := New()
	result := v.Required("name", "John").Custom(true, "age", "unused")
	if result != v {
		t.Error("expected chaining to return same validator")
	}
	if v.HasErrors() {
		t.Error("expected no errors for valid chained validation")
	}
}

func TestStructValidate(t *testing.T) {
	type Limits struct {
		MaxBytes int64 `mapstructure:"max_bytes" validate:"gte=1"`
	}
	type Settings struct {
		Style  string `json:"style" validate:"omitempty,oneof=brief detailed"`
		Name   string `yaml:"name" validate:"required"`
		Limits Limits `mapstructure:"limits"`
	}

	if err := Validate(Settings{Name: "x", Limits: Limits{MaxBytes: 1}}); err != nil {
		t.Errorf("expected valid, got %v", err)
	}

	err := Validate(Settings{Style: "poem", Limits: Limits{}})
	appErr, ok := errors.AsAppError(err)
	if !ok || appErr.Code != errors.ErrCodeConfigInvalid {
		t.Fatalf("expected CONFIG_INVALID, got %v", err)
	}
	for _, want := range []string{"style must be one of: brief detailed", "name is required", "limits.max_bytes must be at least 1"} {
		if !strings.Contains(appErr.Message, want) {
			t.Errorf("message %q missing %q", appErr.Message, want)
		}
	}
	if fields, _ := appErr.Metadata["fields"].([]FieldError); len(fields) != 3 {
		t.Errorf("expected 3 field errors, got %v", appErr.Metadata["fields"])
	}
}

func TestRequiredFunc(t *testing.T) {
	if err := Required("name", "value"); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
	if err := Required("name", ""); !errors.Is(err, errors.ErrCodeConfigInvalid) {
		t.Errorf("expected CONFIG_INVALID, got %v", err)
	}
}
