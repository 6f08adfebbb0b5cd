package types

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
)

func TestMoneyConstructors(t *testing.T) {
	tests := []struct {
		name     string
		money    Money
		amount   int64
		currency string
		display  string
	}{
		{"USDC", USDC(475000), 475000, "usdc", "4750.00 USDC"},
		{"USDC cents", USDC(1), 1, "usdc", "0.01 USDC"},
		{"New lowercases", New(2500, "EURC"), 2500, "eurc", "25.00 EURC"},
		{"Zero", Zero("USDC"), 0, "usdc", "0.00 USDC"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.money.Amount != tt.amount {
				t.Errorf("Amount: got %d, want %d", tt.money.Amount, tt.amount)
			}
			if tt.money.Currency != tt.currency {
				t.Errorf("Currency: got %s, want %s", tt.money.Currency, tt.currency)
			}
			if tt.money.String() != tt.display {
				t.Errorf("Display: got %s, want %s", tt.money.String(), tt.display)
			}
		})
	}
}

func TestMoneyArithmetic(t *testing.T) {
	tests := []struct {
		name     string
		op       func() Money
		expected Money
	}{
		{"Add", func() Money { return USDC(100).Add(USDC(200)) }, USDC(300)},
		{"Subtract", func() Money { return USDC(500).Subtract(USDC(200)) }, USDC(300)},
		{"Multiply", func() Money { return USDC(100).Multiply(3) }, USDC(300)},
		{"Negate", func() Money { return USDC(100).Negate() }, USDC(-100)},
		{"Complex", func() Money {
			return USDC(1000).Add(USDC(500)).Multiply(2).Subtract(USDC(1000))
		}, USDC(2000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.op()
			if !result.Equal(tt.expected) {
				t.Errorf("Got %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestMoneyMulRate(t *testing.T) {
	tests := []struct {
		name string
		m    Money
		rate string
		up   int64
		down int64
	}{
		{"exact", USDC(500000), "0.95", 475000, 475000},
		{"half rounds up", USDC(5), "0.5", 3, 2},
		{"below half", USDC(7), "0.3", 2, 2},
		{"three percent", USDC(123456), "0.03", 3704, 3703},
		{"zero rate", USDC(123456), "0", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := decimal.RequireFromString(tt.rate)
			if got := tt.m.MulRate(r); got.Amount != tt.up {
				t.Errorf("MulRate: got %d, want %d", got.Amount, tt.up)
			}
			if got := tt.m.MulRateDown(r); got.Amount != tt.down {
				t.Errorf("MulRateDown: got %d, want %d", got.Amount, tt.down)
			}
		})
	}
}

func TestMoneyCurrencyMismatch(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected panic for currency mismatch")
		}
	}()

	_ = USDC(100).Add(New(100, "eurc"))
}

func TestMoneyComparison(t *testing.T) {
	tests := []struct {
		name    string
		a, b    Money
		less    bool
		greater bool
		equal   bool
	}{
		{"Equal", USDC(100), USDC(100), false, false, true},
		{"Less", USDC(50), USDC(100), true, false, false},
		{"Greater", USDC(200), USDC(100), false, true, false},
		{"Zero equal", USDC(0), Zero("usdc"), false, false, true},
		{"Negative less", USDC(-100), USDC(100), true, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.LessThan(tt.b); got != tt.less {
				t.Errorf("LessThan: got %v, want %v", got, tt.less)
			}
			if got := tt.a.GreaterThan(tt.b); got != tt.greater {
				t.Errorf("GreaterThan: got %v, want %v", got, tt.greater)
			}
			if got := tt.a.Equal(tt.b); got != tt.equal {
				t.Errorf("Equal: got %v, want %v", got, tt.equal)
			}
		})
	}
}

func TestMoneyMinMax(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Money
		min, max Money
	}{
		{"First smaller", USDC(50), USDC(100), USDC(50), USDC(100)},
		{"Second smaller", USDC(100), USDC(50), USDC(50), USDC(100)},
		{"Equal", USDC(100), USDC(100), USDC(100), USDC(100)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if minVal := tt.a.Min(tt.b); !minVal.Equal(tt.min) {
				t.Errorf("Min: got %v, want %v", minVal, tt.min)
			}
			if maxVal := tt.a.Max(tt.b); !maxVal.Equal(tt.max) {
				t.Errorf("Max: got %v, want %v", maxVal, tt.max)
			}
		})
	}
}

func TestMoneyFormatMajor(t *testing.T) {
	tests := []struct {
		money    Money
		expected string
	}{
		{USDC(475000), "4750.00"},
		{USDC(100), "1.00"},
		{USDC(1), "0.01"},
		{USDC(0), "0.00"},
		{USDC(-4900), "-49.00"},
		{USDC(-1), "-0.01"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.money.FormatMajor(); got != tt.expected {
				t.Errorf("FormatMajor: got %s, want %s", got, tt.expected)
			}
		})
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"5000", 500000, false},
		{"4750.25", 475025, false},
		{" 0.005 ", 1, false},
		{"12.344", 1234, false},
		{"abc", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in, "usdc")
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Amount != tt.want {
				t.Errorf("got %d, want %d", got.Amount, tt.want)
			}
		})
	}
}

func TestMoneyJSON(t *testing.T) {
	data, err := json.Marshal(USDC(15000))
	if err != nil {
		t.Fatal(err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatal(err)
	}
	if raw["display"] != "150.00 USDC" {
		t.Errorf("display: got %v", raw["display"])
	}

	var back Money
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if !back.Equal(USDC(15000)) {
		t.Errorf("decoded: got %v", back)
	}
}

func TestSum(t *testing.T) {
	if got := Sum(); !got.Equal(Zero(DefaultCurrency)) {
		t.Errorf("empty sum: got %v", got)
	}
	if got := Sum(USDC(1), USDC(2), USDC(3)); !got.Equal(USDC(6)) {
		t.Errorf("sum: got %v", got)
	}
}

func TestRates(t *testing.T) {
	if !Percent(3).Equal(decimal.RequireFromString("0.03")) {
		t.Errorf("Percent(3) = %s", Percent(3))
	}
	if !BasisPoints(1500).Equal(decimal.RequireFromString("0.15")) {
		t.Errorf("BasisPoints(1500) = %s", BasisPoints(1500))
	}
}
