package templates_test

import (
	"errors"
	"quotecard/internal/templates"
	"testing"
)

func TestGetKnownTemplates(t *testing.T) {
	for _, key := range []string{"classic", "modern", "warm"} {
		tmpl, err := templates.Get(key)
		if err != nil {
			t.Fatalf("get %q: unexpected error: %v", key, err)
		}

		if tmpl.Key != key {
			t.Fatalf("expected key %q, got %q", key, tmpl.Key)
		}

		if tmpl.FontSize <= 0 || tmpl.LineHeight <= 0 {
			t.Fatalf("expected positive font metrics for %q, got %+v", key, tmpl)
		}
	}
}

func TestGetUnknownTemplate(t *testing.T) {
	_, err := templates.Get("neon")
	if !errors.Is(err, templates.ErrUnknownTemplate) {
		t.Fatalf("expected ErrUnknownTemplate, got %v", err)
	}
}

func TestGetTrimsKey(t *testing.T) {
	if _, err := templates.Get("  warm "); err != nil {
		t.Fatalf("expected trimmed key to resolve, got %v", err)
	}
}

func TestClassicMatchesCatalogue(t *testing.T) {
	tmpl := templates.MustGet(templates.Default)

	if !tmpl.Border {
		t.Fatalf("expected classic template to draw a border")
	}

	if got := tmpl.LineStep(); got != 32 {
		t.Fatalf("expected line step 32, got %v", got)
	}
}

func TestAllReturnsCopy(t *testing.T) {
	all := templates.All()
	all[0].Name = "mutated"

	if templates.All()[0].Name == "mutated" {
		t.Fatalf("expected All to return a copy of the registry")
	}

	if len(templates.Keys()) != len(all) {
		t.Fatalf("expected Keys and All to have the same length")
	}
}
