// Package marketrules carries per-market settlement and ex-dividend
// conventions. Defaults ship embedded; callers can load an override file
// when a desk disagrees with the bundled set.
package marketrules

import (
	_ "embed"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// InstrumentType selects the settlement cycle within a market.
type InstrumentType string

const (
	Government InstrumentType = "government"
	Corporate  InstrumentType = "corporate"
	MoneyMkt   InstrumentType = "money_market"
)

// MarketConvention is one market's rule set.
type MarketConvention struct {
	// Calendar names the holiday calendar (calendar.ID value).
	Calendar string `yaml:"calendar"`
	// SettlementDays maps instrument type to the T+N lag.
	SettlementDays map[InstrumentType]int `yaml:"settlement_days"`
	// ExDividendBusinessDays is the length of the ex-dividend window
	// before a coupon payment; 0 means the market has no ex-div mechanism.
	ExDividendBusinessDays int `yaml:"ex_dividend_business_days"`
}

// Rules maps market codes (US, GB, EUR, JP) to conventions.
type Rules struct {
	Markets map[string]MarketConvention `yaml:"markets"`
}

var (
	defaultOnce  sync.Once
	defaultRules *Rules
	defaultErr   error
)

// Default returns the embedded rule set, parsed once per process.
func Default() (*Rules, error) {
	defaultOnce.Do(func() {
		defaultRules, defaultErr = Parse(defaultsYAML)
		if defaultErr == nil {
			log.Debug().Int("markets", len(defaultRules.Markets)).
				Msg("loaded embedded market rules")
		}
	})
	return defaultRules, defaultErr
}

// Parse decodes a YAML rule set.
func Parse(b []byte) (*Rules, error) {
	var r Rules
	if err := yaml.Unmarshal(b, &r); err != nil {
		return nil, fmt.Errorf("marketrules.Parse: %w", err)
	}
	if len(r.Markets) == 0 {
		return nil, fmt.Errorf("marketrules.Parse: no markets defined")
	}
	return &r, nil
}

// Convention returns the rule set for market. Unmapped markets are a hard
// error, mirroring the day-count alias policy.
func (r *Rules) Convention(market string) (MarketConvention, error) {
	c, ok := r.Markets[market]
	if !ok {
		return MarketConvention{}, fmt.Errorf("marketrules: no conventions for market %q", market)
	}
	return c, nil
}

// SettlementLag returns the T+N lag for an instrument type in a market.
func (r *Rules) SettlementLag(market string, instrument InstrumentType) (int, error) {
	c, err := r.Convention(market)
	if err != nil {
		return 0, err
	}
	n, ok := c.SettlementDays[instrument]
	if !ok {
		return 0, fmt.Errorf("marketrules: market %q has no settlement cycle for %q", market, instrument)
	}
	return n, nil
}
