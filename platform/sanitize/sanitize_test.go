package sanitize

import "testing"

func TestTextStripsTags(t *testing.T) {
	got := Text("  <b>call</b> back <script>alert(1)</script>tomorrow ")
	want := "call back alert(1)tomorrow"
	if got != want {
		t.Fatalf("unexpected sanitized text:\nwant: %q\ngot:  %q", want, got)
	}
}

func TestTextStripsEntityEncodedTags(t *testing.T) {
	got := Text("&lt;img src=x onerror=alert(1)&gt;note")
	if got != "note" {
		t.Fatalf("entity-encoded tag survived: %q", got)
	}
}

func TestTextPtrNil(t *testing.T) {
	if TextPtr(nil) != nil {
		t.Fatal("expected nil for nil input")
	}
}
