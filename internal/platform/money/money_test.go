package money

import (
	"encoding/json"
	"testing"
)

func TestParseAndString(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1000.00", "1000.00"},
		{"1000", "1000.00"},
		{"249.5", "249.50"},
		{"0", "0.00"},
		{" 15.25 ", "15.25"},
	}

	for _, tt := range tests {
		a, err := Parse(tt.in)
		if err != nil {
			t.Fatalf("Parse(%q) error: %v", tt.in, err)
		}
		if a.String() != tt.want {
			t.Errorf("Parse(%q).String() = %q, want %q", tt.in, a.String(), tt.want)
		}
	}

	if _, err := Parse("not-a-number"); err == nil {
		t.Error("expected error for malformed amount")
	}
}

func TestArithmetic(t *testing.T) {
	base := MustParse("1000.00")
	total := base.Add(MustParse("250.00")).Add(MustParse("99.99"))
	if total.String() != "1349.99" {
		t.Errorf("total = %s, want 1349.99", total)
	}

	after := total.Sub(MustParse("99.99"))
	if !after.Equal(MustParse("1250.00")) {
		t.Errorf("after subtraction = %s, want 1250.00", after)
	}

	// Classic float trap: 0.1 + 0.2 must stay exact.
	sum := MustParse("0.1").Add(MustParse("0.2"))
	if sum.String() != "0.30" {
		t.Errorf("0.1 + 0.2 = %s, want 0.30", sum)
	}
}

func TestMinorUnits(t *testing.T) {
	a := MustParse("1349.99")
	if a.Cents() != 134999 {
		t.Errorf("Cents() = %d, want 134999", a.Cents())
	}
	if a.Units() != 1350 {
		t.Errorf("Units() = %d, want 1350", a.Units())
	}
}

func TestJSONRoundTrip(t *testing.T) {
	type payload struct {
		Total Amount `json:"total_amount"`
	}

	out, err := json.Marshal(payload{Total: MustParse("1000.00")})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `{"total_amount":"1000.00"}` {
		t.Errorf("marshal = %s", out)
	}

	var in payload
	if err := json.Unmarshal([]byte(`{"total_amount":"1250.50"}`), &in); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if in.Total.String() != "1250.50" {
		t.Errorf("unmarshal = %s, want 1250.50", in.Total)
	}

	var empty payload
	if err := json.Unmarshal([]byte(`{"total_amount":null}`), &empty); err != nil {
		t.Fatalf("unmarshal null: %v", err)
	}
	if !empty.Total.IsZero() {
		t.Errorf("null should decode to zero, got %s", empty.Total)
	}
}
