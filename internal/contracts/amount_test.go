package contracts

import (
	"encoding/json"
	"testing"
)

func TestAmountMarshalsAsString(t *testing.T) {
	b, err := json.Marshal(struct {
		Value Amount `json:"value"`
	}{Value: Amount(18446744073709551615)})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"value":"18446744073709551615"}` {
		t.Fatalf("unexpected json %s", b)
	}
}

func TestAmountAcceptsStringAndInteger(t *testing.T) {
	for _, in := range []string{`"550000000000000000"`, `550000000000000000`, ` "550000000000000000" `} {
		var a Amount
		if err := json.Unmarshal([]byte(in), &a); err != nil {
			t.Fatalf("unmarshal %s: %v", in, err)
		}
		if a != 550000000000000000 {
			t.Fatalf("unmarshal %s: got %d", in, a)
		}
	}
}

func TestAmountRejectsInvalid(t *testing.T) {
	for _, in := range []string{`"-1"`, `1.5`, `"abc"`, `""`, `"18446744073709551616"`, `true`} {
		var a Amount
		if err := json.Unmarshal([]byte(in), &a); err == nil {
			t.Fatalf("expected error for %s, got %d", in, a)
		}
	}
}
