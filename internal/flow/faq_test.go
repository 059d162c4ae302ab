package flow

import (
	"strings"
	"testing"

	"github.com/BTreeMap/DMPipe/internal/models"
)

func TestLookupAddressShortcut(t *testing.T) {
	cfg := models.DefaultBusinessConfig()
	cfg.Address = "12 High Street"

	answer, ok := Lookup(cfg, "what's your address?")
	if !ok {
		t.Fatal("expected address shortcut to answer")
	}
	if !strings.Contains(answer, "12 High Street") {
		t.Errorf("expected address in answer, got %q", answer)
	}
}

func TestLookupShortcutLocaleMirroring(t *testing.T) {
	cfg := models.DefaultBusinessConfig()
	cfg.Address = "Тверская 1"

	answer, ok := Lookup(cfg, "какой у вас адрес?")
	if !ok {
		t.Fatal("expected address shortcut to answer")
	}
	if !strings.HasPrefix(answer, "Наш адрес:") {
		t.Errorf("expected Russian template, got %q", answer)
	}
}

func TestLookupShortcutSkippedWhenFieldUnset(t *testing.T) {
	cfg := models.DefaultBusinessConfig()

	if answer, ok := Lookup(cfg, "what are your hours?"); ok {
		t.Errorf("expected no answer without configured hours, got %q", answer)
	}
}

func TestLookupPricingPrefersFAQEntry(t *testing.T) {
	cfg := models.DefaultBusinessConfig()
	cfg.PackageText = "generic package text"
	cfg.FAQ = []models.FAQEntry{
		{Question: "what are your prices", Answer: "From £100 per session."},
	}

	answer, ok := Lookup(cfg, "price?")
	if !ok {
		t.Fatal("expected pricing shortcut to answer")
	}
	if answer != "From £100 per session." {
		t.Errorf("expected pricing FAQ entry, got %q", answer)
	}
}

func TestLookupPricingGenericFallback(t *testing.T) {
	cfg := models.DefaultBusinessConfig()

	answer, ok := Lookup(cfg, "how much does it cost?")
	if !ok {
		t.Fatal("expected pricing shortcut to always answer")
	}
	if answer == "" {
		t.Error("expected a generic pricing nudge")
	}
}

func TestLookupFAQTokenOverlap(t *testing.T) {
	cfg := models.DefaultBusinessConfig()
	cfg.FAQ = []models.FAQEntry{
		{Question: "do you shoot weddings", Answer: "Yes, wedding packages start at £900."},
	}

	answer, ok := Lookup(cfg, "hi! can you cover our weddings next june?")
	if !ok {
		t.Fatal("expected token overlap to match the FAQ entry")
	}
	if answer != "Yes, wedding packages start at £900." {
		t.Errorf("unexpected answer %q", answer)
	}
}

func TestLookupSkipsMalformedEntries(t *testing.T) {
	cfg := models.DefaultBusinessConfig()
	cfg.FAQ = []models.FAQEntry{
		{Question: "", Answer: "orphan answer"},
		{Question: "orphan question", Answer: ""},
	}

	if answer, ok := Lookup(cfg, "orphan question"); ok {
		t.Errorf("expected malformed entries to be skipped, got %q", answer)
	}
}

func TestLookupMiss(t *testing.T) {
	cfg := models.DefaultBusinessConfig()
	cfg.FAQ = []models.FAQEntry{
		{Question: "do you travel", Answer: "Within 50 miles."},
	}

	if answer, ok := Lookup(cfg, "something entirely unrelated"); ok {
		t.Errorf("expected a miss, got %q", answer)
	}
}

func TestLookupFirstMatchWins(t *testing.T) {
	cfg := models.DefaultBusinessConfig()
	cfg.FAQ = []models.FAQEntry{
		{Question: "wedding photos", Answer: "first"},
		{Question: "wedding albums", Answer: "second"},
	}

	answer, ok := Lookup(cfg, "tell me about wedding options")
	if !ok {
		t.Fatal("expected a match")
	}
	if answer != "first" {
		t.Errorf("expected the first matching entry, got %q", answer)
	}
}
