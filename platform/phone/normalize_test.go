package phone

import "testing"

func TestNormalizeE164DutchLocalFormat(t *testing.T) {
	got := NormalizeE164("06 12 34 56 78")
	if got != "+31612345678" {
		t.Fatalf("unexpected normalization: %q", got)
	}
}

func TestNormalizeE164KeepsInternationalPrefix(t *testing.T) {
	got := NormalizeE164("+32 470 12 34 56")
	if got != "+32470123456" {
		t.Fatalf("unexpected normalization: %q", got)
	}
}

func TestNormalizeE164KeepsUnparseableInput(t *testing.T) {
	got := NormalizeE164(" ext. 42 ")
	if got != "ext. 42" {
		t.Fatalf("unparseable input should be kept trimmed, got %q", got)
	}
}
