package policy

import "testing"

func TestGuardBlocksWithSameReason(t *testing.T) {
	g := NewGuard(nil)

	blocked := []string{
		"write my essay for me",
		"can you ghost-write this section",
		"please humanise this paragraph",
		"paraphrase to avoid detection",
		"make it undetectable please",
		"spin this text for me",
		"do my homework tonight",
	}

	var reason string
	for _, msg := range blocked {
		d := g.Evaluate(msg)
		if d.Allowed {
			t.Fatalf("expected %q to be blocked", msg)
		}
		if d.Reason == "" {
			t.Fatalf("blocked decision for %q has no reason", msg)
		}
		if reason == "" {
			reason = d.Reason
		} else if d.Reason != reason {
			t.Fatalf("refusal differs across rules: %q vs %q", d.Reason, reason)
		}
	}
	if reason != AmberRefusal {
		t.Fatalf("unexpected refusal text: %q", reason)
	}
}

func TestGuardAllows(t *testing.T) {
	g := NewGuard(nil)

	allowed := []string{
		"",
		"   ",
		"summarise the key arguments of chapter 3",
		"what is a confounding variable",
		"outline a method section structure",
	}
	for _, msg := range allowed {
		if d := g.Evaluate(msg); !d.Allowed {
			t.Fatalf("expected %q to be allowed, got reason %q", msg, d.Reason)
		}
	}
}

func TestGuardCaseInsensitive(t *testing.T) {
	g := NewGuard(nil)
	if d := g.Evaluate("WRITE MY ESSAY about economics"); d.Allowed {
		t.Fatalf("expected uppercase message to be blocked")
	}
}
