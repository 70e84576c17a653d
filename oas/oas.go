// Package oas values embedded call options and solves for the
// option-adjusted spread. Single-call bonds go through a closed-form Black
// approximation; multi-call bonds through a binomial short-rate lattice or
// Hull-White Monte-Carlo. The embedded option is always repriced under the
// OAS-shifted curve inside the root search.
package oas

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/meenmo/bondlib/bond"
	"github.com/meenmo/bondlib/curve"
	"github.com/meenmo/bondlib/daycount"
	"github.com/meenmo/bondlib/pricing"
	"github.com/meenmo/bondlib/schedule"
	"github.com/meenmo/bondlib/solver"
)

// Model identifies the valuation model behind a Result.
type Model string

const (
	ModelBlack          Model = "BLACK"
	ModelHWBinomial     Model = "HULL_WHITE_BINOMIAL"
	ModelHWMonteCarlo   Model = "HULL_WHITE_MONTE_CARLO"
	// ModelAuto picks Black for a single future call and the binomial
	// lattice for several.
	ModelAuto Model = "AUTO"
)

// ErrNoFutureCall marks an OAS request on a bond with no remaining call.
// It is a defined "not applicable" outcome, not a failure; Compute returns
// (nil, nil) for it and callers should treat a nil Result accordingly.
var ErrNoFutureCall = errors.New("no future call")

// Result is the outcome of an OAS computation.
type Result struct {
	// OAS is a decimal spread (0.0025 == 25bp).
	OAS   float64
	Model Model
	// Volatility is the calibrated vol used for the embedded option.
	Volatility float64
	// OptionValue is the embedded option's value at the solved OAS, in
	// price units.
	OptionValue float64
	// Steps is the lattice step count (binomial) and Paths the simulation
	// count (Monte-Carlo); zero when not applicable.
	Steps int
	Paths int
	// Approximated is set when the root-finder could not bracket and the
	// z-spread + optionValue/PV01 fallback was used instead.
	Approximated bool
}

// Params feeds Compute.
type Params struct {
	DirtyPrice    float64
	Schedule      []schedule.PaymentEvent
	Calls         []schedule.CallEntry
	Notional      float64
	ValuationDate time.Time
	Curve         *curve.ZeroCurve
	DayBasis      daycount.Convention
	Compounding   pricing.Compounding

	// Model forces a valuation model; default ModelAuto.
	Model Model
	// Vol overrides the surface with a flat volatility when positive.
	Vol float64
	// Surface supplies calibrated vols; nil means DefaultVolSurface.
	Surface *VolSurface
	// MeanReversion is the Hull-White a parameter; default 0.03.
	MeanReversion float64
	// Steps is the lattice step count; default 100.
	Steps int
	// Paths is the Monte-Carlo path count; default 4096.
	Paths int
	// Seed makes Monte-Carlo runs reproducible; default 1.
	Seed int64
}

const (
	oasBracketLo = -0.05
	oasBracketHi = 0.05

	defaultMeanReversion = 0.03
	defaultSteps         = 100
	defaultPaths         = 4096
)

func (p *Params) setDefaults() {
	if p.Model == "" {
		p.Model = ModelAuto
	}
	if p.DayBasis == "" {
		p.DayBasis = daycount.Act365Fixed
	}
	if p.Compounding == "" {
		p.Compounding = pricing.Continuous
	}
	if p.Notional == 0 {
		p.Notional = 100
	}
	if p.MeanReversion == 0 {
		p.MeanReversion = defaultMeanReversion
	}
	if p.Steps == 0 {
		p.Steps = defaultSteps
	}
	if p.Paths == 0 {
		p.Paths = defaultPaths
	}
	if p.Seed == 0 {
		p.Seed = 1
	}
	if p.Surface == nil {
		p.Surface = DefaultVolSurface
	}
}

// futureCall is a call scenario in valuation-time coordinates.
type futureCall struct {
	time   float64
	strike float64 // absolute cash strike on the outstanding notional
}

// Compute solves for the OAS. A bond with no future call yields
// (nil, nil): not applicable rather than an error.
func Compute(p Params) (*Result, error) {
	p.setDefaults()
	if p.ValuationDate.IsZero() {
		return nil, fmt.Errorf("oas.Compute: ValuationDate is required")
	}
	if p.Curve == nil {
		return nil, fmt.Errorf("oas.Compute: Curve is required")
	}
	if p.DirtyPrice <= 0 {
		return nil, fmt.Errorf("oas.Compute: DirtyPrice must be positive, got %g", p.DirtyPrice)
	}

	calls, err := p.futureCalls()
	if err != nil {
		return nil, err
	}
	if len(calls) == 0 {
		log.Debug().Time("valuation", p.ValuationDate).Msg("oas: no future call, not applicable")
		return nil, nil
	}

	times, cfs, err := schedule.Cashflows(p.Schedule, schedule.ExtractParams{
		ValuationDate: p.ValuationDate,
		Curve:         p.Curve,
		DayBasis:      p.DayBasis,
		Compounding:   p.Compounding,
	})
	if err != nil {
		return nil, err
	}
	if len(times) == 0 {
		return nil, fmt.Errorf("oas.Compute: %w: no future cashflows", bond.ErrDegenerateSchedule)
	}

	model := p.Model
	if model == ModelAuto {
		if len(calls) == 1 {
			model = ModelBlack
		} else {
			model = ModelHWBinomial
		}
		log.Debug().Str("model", string(model)).Int("calls", len(calls)).Msg("oas: selected model")
	}

	switch model {
	case ModelBlack:
		return p.solveBlack(times, cfs, calls)
	case ModelHWBinomial:
		return p.solveLattice(times, cfs, calls)
	case ModelHWMonteCarlo:
		return p.solveMonteCarlo(times, cfs, calls)
	default:
		return nil, fmt.Errorf("oas.Compute: unsupported model %q", p.Model)
	}
}

func (p *Params) futureCalls() ([]futureCall, error) {
	out := make([]futureCall, 0, len(p.Calls))
	for _, c := range p.Calls {
		if !c.Date.After(p.ValuationDate) {
			continue
		}
		t, err := daycount.YearFraction(p.ValuationDate, c.Date, p.DayBasis)
		if err != nil {
			return nil, err
		}
		outstanding := schedule.Outstanding(p.Schedule, p.Notional, c.Date)
		out = append(out, futureCall{time: t, strike: c.Price / 100 * outstanding})
	}
	return out, nil
}

// solveOAS roots presentValue(curve+oas) + optionValue(oas) == dirtyPrice,
// with optionValue recomputed under the shifted curve at every trial.
// When the bracket fails, it falls back to the first-order approximation
// OAS ≈ zSpread + optionValue/PV01.
func (p *Params) solveOAS(times, cfs []float64, optionValue func(spread float64) (float64, error)) (float64, float64, bool, error) {
	var lastOpt float64
	f := func(s float64) float64 {
		pv, err := pricing.PresentValue(times, cfs, p.Curve, s, p.Compounding)
		if err != nil {
			return math.NaN()
		}
		opt, err := optionValue(s)
		if err != nil {
			return math.NaN()
		}
		lastOpt = opt
		return pv + opt - p.DirtyPrice
	}

	res, err := solver.Solve(f, oasBracketLo, oasBracketHi, 1e-10, solver.DefaultMaxIter)
	if err == nil {
		return res.Root, lastOpt, false, nil
	}
	if !errors.Is(err, solver.ErrNonConvergence) {
		return 0, 0, false, err
	}

	// Fallback: shift the z-spread by the option value scaled by price
	// sensitivity. Only reached when the root has no bracket.
	zres, zerr := bond.ZSpread(p.DirtyPrice, times, cfs, p.Curve, p.Compounding)
	if zerr != nil {
		return 0, 0, false, fmt.Errorf("oas: %w (fallback z-spread also failed: %v)", err, zerr)
	}
	z := zres.Root
	opt, oerr := optionValue(z)
	if oerr != nil {
		return 0, 0, false, oerr
	}
	const h = 1e-4
	pvUp, err1 := pricing.PresentValue(times, cfs, p.Curve, z+h, p.Compounding)
	pvDown, err2 := pricing.PresentValue(times, cfs, p.Curve, z-h, p.Compounding)
	if err1 != nil || err2 != nil {
		return 0, 0, false, fmt.Errorf("oas: fallback sensitivity: %v %v", err1, err2)
	}
	sens := (pvDown - pvUp) / (2 * h) // price change per unit spread, positive
	if sens <= 0 {
		return 0, 0, false, fmt.Errorf("oas: %w: degenerate price sensitivity", solver.ErrNonConvergence)
	}
	log.Warn().Float64("zspread", z).Float64("option_value", opt).
		Msg("oas: root-finder failed to bracket, using z-spread approximation")
	return z + opt/sens, opt, true, nil
}
