package domain

import (
	"errors"
	"testing"
)

func TestDecodeModelVerdict(t *testing.T) {
	t.Parallel()
	cases := map[string]Verdict{
		`{"win": true}`:                           VerdictWorkerPrevails,
		`{"win": false}`:                          VerdictEmployerPrevails,
		"```json\n{\"win\": true}\n```":           VerdictWorkerPrevails,
		"  ```\n{\"win\":false,\"why\":\"x\"}```": VerdictEmployerPrevails,
	}
	for raw, want := range cases {
		got, err := DecodeModelVerdict(raw)
		if err != nil {
			t.Fatalf("DecodeModelVerdict(%q): %v", raw, err)
		}
		if got != want {
			t.Fatalf("DecodeModelVerdict(%q) = %s, want %s", raw, got, want)
		}
	}
	for _, raw := range []string{"", "yes", `{"winner": true}`} {
		if _, err := DecodeModelVerdict(raw); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("DecodeModelVerdict(%q): expected invalid input, got %v", raw, err)
		}
	}
}

func TestVerdictOutcome(t *testing.T) {
	t.Parallel()
	if VerdictWorkerPrevails.Outcome() != StatusCompleted {
		t.Fatalf("worker verdict must complete the deal")
	}
	if VerdictEmployerPrevails.Outcome() != StatusCancelledByEmployer {
		t.Fatalf("employer verdict must cancel the deal")
	}
	if _, err := ParseVerdict("draw"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid verdict, got %v", err)
	}
}

func TestValidateProofURL(t *testing.T) {
	t.Parallel()
	if _, err := ValidateProofURL("https://example.com/proof.png"); err != nil {
		t.Fatalf("valid url rejected: %v", err)
	}
	for _, raw := range []string{"", "ipfs://cid", "/relative/path", "https://"} {
		if _, err := ValidateProofURL(raw); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("ValidateProofURL(%q): expected invalid input, got %v", raw, err)
		}
	}
}
