package messaging

import "testing"

func TestValidateAndCanonicalizeRecipient(t *testing.T) {
	svc := NewInstagramService(nil)

	got, err := svc.ValidateAndCanonicalizeRecipient("  17841400000000000  ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "17841400000000000" {
		t.Errorf("expected trimmed id, got %q", got)
	}

	if _, err := svc.ValidateAndCanonicalizeRecipient("   "); err == nil {
		t.Error("expected error for empty recipient")
	}
}
