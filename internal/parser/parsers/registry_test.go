package parsers

import (
	"context"
	"errors"
	"testing"

	"github.com/Vodeneev/sharpedge/internal/pkg/config"
	"github.com/Vodeneev/sharpedge/internal/pkg/enums"
	"github.com/Vodeneev/sharpedge/internal/pkg/models"
)

type stubAdapter struct{ name string }

func (s stubAdapter) Name() string { return s.name }

func (s stubAdapter) Fetch(context.Context, Scope) ([]models.RawOddsObservation, error) {
	return nil, nil
}

func TestRegistry(t *testing.T) {
	Register("Registry-Test-A", func(*config.Config) (Adapter, error) { return stubAdapter{"registry-test-a"}, nil })
	Register("registry-test-broken", func(*config.Config) (Adapter, error) { return nil, errors.New("missing key") })

	if _, ok := FactoryByName(" REGISTRY-TEST-A "); !ok {
		t.Fatal("lookup should ignore case and spaces")
	}

	adapters, err := Build(&config.Config{}, []string{"registry-test-a", "Registry-Test-A"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(adapters) != 1 || adapters[0].Name() != "registry-test-a" {
		t.Errorf("adapters = %v", adapters)
	}

	if _, err := Build(&config.Config{}, []string{"registry-test-broken"}); err == nil {
		t.Error("expected factory error")
	}
	if _, err := Build(&config.Config{}, []string{"nope"}); err == nil {
		t.Error("expected unknown parser error")
	}
}

func TestRegister_DuplicatePanics(t *testing.T) {
	Register("registry-test-dup", func(*config.Config) (Adapter, error) { return stubAdapter{}, nil })
	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate registration")
		}
	}()
	Register("registry-test-dup", func(*config.Config) (Adapter, error) { return stubAdapter{}, nil })
}

func TestScope_WantsMarket(t *testing.T) {
	if !(Scope{}).WantsMarket(enums.Total) {
		t.Error("empty scope should want every market")
	}
	s := Scope{MarketTypes: []enums.MarketType{enums.Moneyline}}
	if !s.WantsMarket(enums.Moneyline) || s.WantsMarket(enums.Spread) {
		t.Error("scope filter is wrong")
	}
}
