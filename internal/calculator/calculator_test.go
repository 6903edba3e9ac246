package calculator

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Vodeneev/sharpedge/internal/pkg/enums"
	"github.com/Vodeneev/sharpedge/internal/pkg/models"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func near(got decimal.Decimal, want string, tol string) bool {
	return got.Sub(d(want)).Abs().LessThanOrEqual(d(tol))
}

func TestDevig_SumsToOne(t *testing.T) {
	prices := [][2]string{
		{"1.91", "1.99"},
		{"1.5", "2.8"},
		{"1.01", "30"},
		{"2", "2"},
		{"1.952", "1.952"},
		{"3.3", "1.37"},
	}
	for _, method := range []string{MethodMultiplicative, MethodAdditive, MethodShin} {
		dv, err := NewDevigger(method)
		if err != nil {
			t.Fatalf("NewDevigger(%q): %v", method, err)
		}
		for _, pp := range prices {
			p, q, err := dv.Devig(d(pp[0]), d(pp[1]))
			if err != nil {
				if method == MethodAdditive && errors.Is(err, ErrInvalidProbability) {
					continue
				}
				t.Fatalf("%s Devig(%s, %s): %v", method, pp[0], pp[1], err)
			}
			if !p.Add(q).Equal(one) {
				t.Errorf("%s Devig(%s, %s) sum = %s, want exactly 1", method, pp[0], pp[1], p.Add(q))
			}
			if ValidateProbability(p) != nil || ValidateProbability(q) != nil {
				t.Errorf("%s Devig(%s, %s) = %s, %s outside (0,1)", method, pp[0], pp[1], p, q)
			}
		}
	}
}

func TestMultiplicative_Example(t *testing.T) {
	p, q, err := Multiplicative{}.Devig(d("1.91"), d("1.99"))
	if err != nil {
		t.Fatal(err)
	}
	if !near(p, "0.5102564", "0.0000001") {
		t.Errorf("p_home = %s, want ~0.51026", p)
	}
	if !near(q, "0.4897436", "0.0000001") {
		t.Errorf("p_away = %s, want ~0.48974", q)
	}
}

func TestShin_SymmetricAndCloseToMultiplicative(t *testing.T) {
	p, _, err := Shin{}.Devig(d("1.91"), d("1.91"))
	if err != nil {
		t.Fatal(err)
	}
	if !near(p, "0.5", "0.000000000001") {
		t.Errorf("equal prices gave %s, want 0.5", p)
	}

	shin, _, err := Shin{}.Devig(d("1.91"), d("1.99"))
	if err != nil {
		t.Fatal(err)
	}
	mult, _, _ := Multiplicative{}.Devig(d("1.91"), d("1.99"))
	if !shin.GreaterThan(d("0.5")) || !near(shin, mult.String(), "0.005") {
		t.Errorf("shin p = %s, multiplicative p = %s", shin, mult)
	}
}

func TestAdditive_Example(t *testing.T) {
	p, _, err := Additive{}.Devig(d("1.91"), d("1.99"))
	if err != nil {
		t.Fatal(err)
	}
	// implied 0.52356 and 0.50251, overround 0.02607 split evenly
	if !near(p, "0.510524", "0.00001") {
		t.Errorf("p = %s, want ~0.51052", p)
	}
}

func TestNewDevigger_Unknown(t *testing.T) {
	if _, err := NewDevigger("power"); !errors.Is(err, ErrUnknownVigMethod) {
		t.Fatalf("error = %v, want ErrUnknownVigMethod", err)
	}
}

func TestExpectedValueAndKelly(t *testing.T) {
	p, _, _ := Multiplicative{}.Devig(d("1.91"), d("1.99"))

	tests := []struct {
		name      string
		price     string
		wantEV    string
		wantKelly string
	}{
		{"positive edge", "2.05", "0.04603", "0.04384"},
		{"negative edge", "1.80", "-0.08154", "-0.10192"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := ExpectedValue(p, d(tt.price))
			if err != nil {
				t.Fatal(err)
			}
			kelly, err := Kelly(p, d(tt.price))
			if err != nil {
				t.Fatal(err)
			}
			if !near(ev, tt.wantEV, "0.00001") {
				t.Errorf("EV = %s, want ~%s", ev, tt.wantEV)
			}
			if !near(kelly, tt.wantKelly, "0.00001") {
				t.Errorf("kelly = %s, want ~%s", kelly, tt.wantKelly)
			}

			ev2, _ := ExpectedValue(p, d(tt.price))
			kelly2, _ := Kelly(p, d(tt.price))
			if ev.String() != ev2.String() || kelly.String() != kelly2.String() {
				t.Error("repeated computation differs")
			}
		})
	}
}

func TestValidatePrice(t *testing.T) {
	for _, s := range []string{"1", "0.95", "0", "-2"} {
		if err := ValidatePrice(d(s)); !errors.Is(err, ErrInvalidPrice) {
			t.Errorf("ValidatePrice(%s) = %v, want ErrInvalidPrice", s, err)
		}
	}
	if err := ValidatePrice(d("1.0001")); err != nil {
		t.Errorf("ValidatePrice(1.0001) = %v", err)
	}
	if _, err := Kelly(d("0.5"), d("1")); !errors.Is(err, ErrInvalidPrice) {
		t.Errorf("Kelly at price 1 = %v, want ErrInvalidPrice", err)
	}
}

func TestRecommendedStake(t *testing.T) {
	limit := d("0.01")
	tests := []struct{ kelly, want string }{
		{"0.0438", "0.01"},
		{"0.005", "0.005"},
		{"-0.1", "0"},
	}
	for _, tt := range tests {
		if got := RecommendedStake(d(tt.kelly), limit); !got.Equal(d(tt.want)) {
			t.Errorf("RecommendedStake(%s) = %s, want %s", tt.kelly, got, tt.want)
		}
	}
}

func TestAmericanConversion(t *testing.T) {
	tests := []struct {
		american string
		decimal  string
	}{
		{"150", "2.5"},
		{"100", "2"},
		{"-200", "1.5"},
		{"-110", "1.9090909090909091"},
	}
	for _, tt := range tests {
		got, err := AmericanToDecimal(d(tt.american))
		if err != nil {
			t.Fatalf("AmericanToDecimal(%s): %v", tt.american, err)
		}
		if !got.Equal(d(tt.decimal)) {
			t.Errorf("AmericanToDecimal(%s) = %s, want %s", tt.american, got, tt.decimal)
		}
	}

	if _, err := AmericanToDecimal(d("50")); !errors.Is(err, ErrInvalidPrice) {
		t.Errorf("AmericanToDecimal(50) = %v, want ErrInvalidPrice", err)
	}

	back, err := DecimalToAmerican(d("1.5"))
	if err != nil || !back.Equal(d("-200")) {
		t.Errorf("DecimalToAmerican(1.5) = %s, %v", back, err)
	}
	back, err = DecimalToAmerican(d("2.05"))
	if err != nil || !back.Equal(d("105")) {
		t.Errorf("DecimalToAmerican(2.05) = %s, %v", back, err)
	}
}

func TestCompare(t *testing.T) {
	calc, err := New(MethodMultiplicative, 0.01)
	if err != nil {
		t.Fatal(err)
	}
	fixed := time.Date(2026, 3, 14, 23, 0, 0, 0, time.UTC)
	calc.now = func() time.Time { return fixed }

	game := models.CanonicalGameKey{League: enums.NBA, HomeTeamID: "nba-bos", AwayTeamID: "nba-lal", Start: fixed}
	market := models.CanonicalMarketKey{Game: game, Type: enums.Moneyline, Side: enums.Home, Period: enums.FullGame}

	for _, price := range []string{"2.05", "1.80"} {
		row, err := calc.Compare("cycle-1", Pair{
			Market:     market,
			Target:     Quote{Book: "crabsports", Price: d(price), ObservedAt: fixed},
			Sharp:      Quote{Book: "pinnacle", Price: d("1.91"), ObservedAt: fixed},
			SharpOther: Quote{Book: "pinnacle", Price: d("1.99"), ObservedAt: fixed},
		})
		if err != nil {
			t.Fatalf("Compare(%s): %v", price, err)
		}
		if row.ID == "" || row.CycleID != "cycle-1" || row.VigMethod != MethodMultiplicative {
			t.Errorf("row metadata = %+v", row)
		}
		if !row.FairProbability.Add(row.FairProbabilityOther).Equal(one) {
			t.Errorf("fair probabilities do not sum to 1")
		}
		if !row.CollectedAt.Equal(fixed) || row.GameKey.String() != game.String() {
			t.Errorf("row keys/timestamps = %+v", row)
		}
		if row.RecommendedStake.GreaterThan(d("0.01")) || row.RecommendedStake.IsNegative() {
			t.Errorf("stake = %s outside [0, 0.01]", row.RecommendedStake)
		}
	}

	_, err = calc.Compare("cycle-1", Pair{
		Market:     market,
		Target:     Quote{Book: "crabsports", Price: d("1")},
		Sharp:      Quote{Book: "pinnacle", Price: d("1.91")},
		SharpOther: Quote{Book: "pinnacle", Price: d("1.99")},
	})
	if !errors.Is(err, ErrInvalidPrice) {
		t.Errorf("Compare with price 1 = %v, want ErrInvalidPrice", err)
	}
}
