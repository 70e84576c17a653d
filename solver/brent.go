// Package solver provides the bracketed root-finder shared by every yield,
// spread and OAS solver. Brent's method guarantees convergence given a
// valid bracket; a damped Newton fast path is available when a cheap
// derivative estimate exists, but it always falls back to bracketing
// before reporting non-convergence.
package solver

import (
	"errors"
	"fmt"
	"math"
)

// ErrNonConvergence is returned when the solver exhausts its bracket or
// iteration budget. Callers surface it as a missing metric for that
// security rather than guessing a value.
var ErrNonConvergence = errors.New("root finder did not converge")

// Result reports the solved root and how hard it was to find.
type Result struct {
	Root       float64
	Iterations int
	Converged  bool
}

const (
	// DefaultTolerance matches the bootstrap tolerance used for curve
	// construction; yields resolved to 1e-12 are exact for all practical
	// purposes.
	DefaultTolerance = 1e-12
	DefaultMaxIter   = 100
)

// Solve finds a root of f in [lo, hi] using Brent's method. The bracket
// must satisfy f(lo)*f(hi) <= 0.
func Solve(f func(float64) float64, lo, hi, tol float64, maxIter int) (Result, error) {
	if tol <= 0 {
		tol = DefaultTolerance
	}
	if maxIter <= 0 {
		maxIter = DefaultMaxIter
	}

	a, b := lo, hi
	fa, fb := f(a), f(b)
	if math.IsNaN(fa) || math.IsNaN(fb) {
		return Result{}, fmt.Errorf("solver.Solve: %w: objective is NaN at bracket endpoint", ErrNonConvergence)
	}
	if fa == 0 {
		return Result{Root: a, Converged: true}, nil
	}
	if fb == 0 {
		return Result{Root: b, Converged: true}, nil
	}
	if fa*fb > 0 {
		return Result{}, fmt.Errorf("solver.Solve: %w: no sign change on [%g, %g]", ErrNonConvergence, lo, hi)
	}

	// Ensure |f(b)| <= |f(a)| so b is the best estimate.
	if math.Abs(fa) < math.Abs(fb) {
		a, b = b, a
		fa, fb = fb, fa
	}
	c, fc := a, fa
	mflag := true
	var d float64

	for iter := 1; iter <= maxIter; iter++ {
		if math.Abs(fb) < tol || math.Abs(b-a) < tol {
			return Result{Root: b, Iterations: iter, Converged: true}, nil
		}

		var s float64
		if fa != fc && fb != fc {
			// Inverse quadratic interpolation.
			s = a*fb*fc/((fa-fb)*(fa-fc)) +
				b*fa*fc/((fb-fa)*(fb-fc)) +
				c*fa*fb/((fc-fa)*(fc-fb))
		} else {
			// Secant.
			s = b - fb*(b-a)/(fb-fa)
		}

		// Accept the interpolated step only when it is safe; otherwise bisect.
		lo34 := (3*a + b) / 4
		cond1 := !(between(s, lo34, b))
		cond2 := mflag && math.Abs(s-b) >= math.Abs(b-c)/2
		cond3 := !mflag && math.Abs(s-b) >= math.Abs(c-d)/2
		cond4 := mflag && math.Abs(b-c) < tol
		cond5 := !mflag && math.Abs(c-d) < tol
		if cond1 || cond2 || cond3 || cond4 || cond5 {
			s = (a + b) / 2
			mflag = true
		} else {
			mflag = false
		}

		fs := f(s)
		if math.IsNaN(fs) {
			// Retreat to bisection when the objective blows up.
			s = (a + b) / 2
			fs = f(s)
			mflag = true
			if math.IsNaN(fs) {
				return Result{Iterations: iter}, fmt.Errorf("solver.Solve: %w: objective is NaN inside bracket", ErrNonConvergence)
			}
		}

		d = c
		c, fc = b, fb
		if fa*fs < 0 {
			b, fb = s, fs
		} else {
			a, fa = s, fs
		}
		if math.Abs(fa) < math.Abs(fb) {
			a, b = b, a
			fa, fb = fb, fa
		}
	}

	return Result{Root: b, Iterations: maxIter}, fmt.Errorf("solver.Solve: %w after %d iterations", ErrNonConvergence, maxIter)
}

// SolveNewton runs damped Newton-Raphson from guess using the supplied
// derivative, falling back to Brent on [lo, hi] when the iteration stalls,
// escapes the bracket, or the derivative degenerates. The fallback is what
// makes the fast path safe to use everywhere.
func SolveNewton(f, fprime func(float64) float64, guess, lo, hi, tol float64, maxIter int) (Result, error) {
	if tol <= 0 {
		tol = DefaultTolerance
	}
	if maxIter <= 0 {
		maxIter = DefaultMaxIter
	}

	x := guess
	for iter := 1; iter <= maxIter; iter++ {
		fx := f(x)
		if math.IsNaN(fx) {
			break
		}
		if math.Abs(fx) < tol {
			return Result{Root: x, Iterations: iter, Converged: true}, nil
		}
		dfx := fprime(x)
		if math.IsNaN(dfx) || math.Abs(dfx) < 1e-15 {
			break
		}
		step := fx / dfx
		// Damping: never step more than half the bracket at once.
		maxStep := (hi - lo) / 2
		if math.Abs(step) > maxStep {
			step = math.Copysign(maxStep, step)
		}
		x -= step
		if x < lo || x > hi {
			break
		}
	}

	return Solve(f, lo, hi, tol, maxIter)
}

func between(x, lo, hi float64) bool {
	if lo > hi {
		lo, hi = hi, lo
	}
	return x >= lo && x <= hi
}
