package batch

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/meenmo/bondlib/bond"
	"github.com/meenmo/bondlib/curve"
	"github.com/meenmo/bondlib/daycount"
	"github.com/meenmo/bondlib/oas"
	"github.com/meenmo/bondlib/pricing"
	"github.com/meenmo/bondlib/schedule"
	"github.com/meenmo/bondlib/solver"
)

// Request is one security to value on one valuation date. Inputs are
// treated as immutable; the same curve may back many requests.
type Request struct {
	// ID identifies the security in results and logs.
	ID            string
	DirtyPrice    float64
	Schedule      []schedule.PaymentEvent
	Calls         []schedule.CallEntry
	Notional      float64
	ValuationDate time.Time
	Curve         *curve.ZeroCurve
	DayBasis      daycount.Convention
	Compounding   pricing.Compounding

	// WithOAS also runs the option-adjusted spread when calls exist.
	WithOAS bool
	// OAS tunes the option model; zero values take the engine defaults.
	OAS oas.Params
}

// Outcome carries the full analytics set for one request. Err is set and
// the measures zero when the security failed; one failing security never
// aborts the batch.
type Outcome struct {
	ID            string
	ValuationDate time.Time
	Risk          bond.DurationSet
	// Worst is present when the security has future calls.
	Worst *bond.WorstResult
	// OAS is present when requested and applicable.
	OAS     *oas.Result
	Elapsed time.Duration
	Err     error
}

// Engine is the batch runner. The zero value runs with GOMAXPROCS workers
// and no metrics.
type Engine struct {
	// Workers bounds concurrent calculations; <= 0 means GOMAXPROCS.
	Workers int
	// Deadline caps the whole batch; zero means no cap beyond ctx.
	Deadline time.Duration
	// Metrics receives diagnostics; nil disables reporting.
	Metrics *Metrics
}

// Run values every request and returns outcomes in request order. The only
// batch-level errors are context cancellation and the deadline; per-security
// failures land in Outcome.Err.
func (e *Engine) Run(ctx context.Context, reqs []Request) ([]Outcome, error) {
	workers := e.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if e.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Deadline)
		defer cancel()
	}

	out := make([]Outcome, len(reqs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, req := range reqs {
		i, req := i, req
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				out[i] = Outcome{ID: req.ID, ValuationDate: req.ValuationDate, Err: err}
				return err
			}
			out[i] = e.runOne(req)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return out, fmt.Errorf("batch: %w", err)
	}

	log.Info().Int("securities", len(reqs)).Int("workers", workers).
		Msg("batch complete")
	return out, nil
}

func (e *Engine) runOne(req Request) Outcome {
	start := time.Now()
	o := Outcome{ID: req.ID, ValuationDate: req.ValuationDate}
	defer func() {
		o.Elapsed = time.Since(start)
		status := "ok"
		if o.Err != nil {
			status = "error"
			if errors.Is(o.Err, solver.ErrNonConvergence) {
				e.Metrics.countNonConvergence()
			}
			log.Warn().Str("security", req.ID).Err(o.Err).Msg("calculation failed")
		}
		e.Metrics.countOutcome(status)
	}()

	times, cfs, err := schedule.Cashflows(req.Schedule, schedule.ExtractParams{
		ValuationDate: req.ValuationDate,
		Curve:         req.Curve,
		DayBasis:      req.DayBasis,
		Compounding:   req.Compounding,
	})
	if err != nil {
		o.Err = fmt.Errorf("security %s: %w", req.ID, err)
		return o
	}

	riskStart := time.Now()
	risk, err := bond.Durations(req.DirtyPrice, times, cfs, req.Curve, req.Compounding)
	e.Metrics.observe("durations", time.Since(riskStart).Seconds())
	if err != nil {
		o.Err = fmt.Errorf("security %s: %w", req.ID, err)
		return o
	}
	o.Risk = risk

	if len(req.Calls) > 0 {
		ytwStart := time.Now()
		worst, err := bond.YieldToWorst(bond.YieldToWorstParams{
			DirtyPrice:    req.DirtyPrice,
			Schedule:      req.Schedule,
			Calls:         req.Calls,
			Notional:      req.Notional,
			ValuationDate: req.ValuationDate,
			DayBasis:      req.DayBasis,
			Compounding:   req.Compounding,
			Curve:         req.Curve,
		})
		e.Metrics.observe("yield_to_worst", time.Since(ytwStart).Seconds())
		if err != nil {
			o.Err = fmt.Errorf("security %s: yield to worst: %w", req.ID, err)
			return o
		}
		o.Worst = &worst
	}

	if req.WithOAS && len(req.Calls) > 0 {
		op := req.OAS
		op.DirtyPrice = req.DirtyPrice
		op.Schedule = req.Schedule
		op.Calls = req.Calls
		op.Notional = req.Notional
		op.ValuationDate = req.ValuationDate
		op.Curve = req.Curve
		op.DayBasis = req.DayBasis
		op.Compounding = req.Compounding

		oasStart := time.Now()
		res, err := oas.Compute(op)
		e.Metrics.observe("oas", time.Since(oasStart).Seconds())
		if err != nil {
			o.Err = fmt.Errorf("security %s: oas: %w", req.ID, err)
			return o
		}
		o.OAS = res
	}
	return o
}
