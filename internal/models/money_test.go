package models

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
)

func TestPercentOfRoundsHalfUp(t *testing.T) {
	cases := []struct {
		amount  string
		percent string
		want    string
	}{
		{amount: "199.90", percent: "30", want: "59.97"},
		{amount: "100.00", percent: "10", want: "10.00"},
		{amount: "0.05", percent: "50", want: "0.03"},
		{amount: "97.00", percent: "12.5", want: "12.13"},
		{amount: "33.33", percent: "33.33", want: "11.11"},
	}
	for _, tc := range cases {
		amount := decimal.RequireFromString(tc.amount)
		percent := decimal.RequireFromString(tc.percent)
		got := PercentOf(amount, percent)
		if got.String() != tc.want {
			t.Fatalf("%s * %s%%: want %s got %s", tc.amount, tc.percent, tc.want, got.String())
		}
	}
}

func TestMoneyJSONRoundTrip(t *testing.T) {
	var m Money
	if err := json.Unmarshal([]byte(`199.9`), &m); err != nil {
		t.Fatalf("unmarshal number failed: %v", err)
	}
	if m.String() != "199.90" {
		t.Fatalf("want 199.90 got %s", m.String())
	}
	if err := json.Unmarshal([]byte(`"59.969999"`), &m); err != nil {
		t.Fatalf("unmarshal string failed: %v", err)
	}
	body, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(body) != `"59.97"` {
		t.Fatalf("want \"59.97\" got %s", string(body))
	}
}

func TestMustMoneyInvalid(t *testing.T) {
	if got := MustMoney("abc"); !got.IsZero() {
		t.Fatalf("invalid input should be zero, got %s", got.String())
	}
}
