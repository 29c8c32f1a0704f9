package snake

import "math"

const (
	// golden is φ, the expansion ratio used while bracketing.
	golden = 1.618033988749895
	// cgold is 1 − 1/φ, the golden-section fraction used by Brent.
	cgold = 0.3819660112501051
	// maxExcursion limits parabolic extrapolation to this many times the
	// current bracket width.
	maxExcursion = 100.0
	// tiny guards the parabolic denominator while bracketing.
	tiny = 1e-20
	// zeps keeps the Brent tolerance positive when the minimum sits at step 0.
	zeps = 1e-10

	maxBracketSteps = 100
	maxBrentSteps   = 100
)

// bracket holds three step lengths with f(b) no larger than its neighbours.
type bracket struct {
	a, b, c    float64
	fa, fb, fc float64
}

// lineSearch minimizes the energy along a direction. It tracks the lowest
// energy seen so the cancellation path can commit the best decided step.
type lineSearch struct {
	eval *evaluator

	x     NodeSet
	v     Vector
	bestT float64
	bestF float64

	// accepted, when set, observes every trial the refinement accepts as
	// its new best point.
	accepted func(t, f float64)
}

func newLineSearch(eval *evaluator) *lineSearch {
	return &lineSearch{eval: eval}
}

// f evaluates the energy at step t along the current direction.
func (ls *lineSearch) f(t float64) (float64, Outcome) {
	fx, out := ls.eval.along(ls.x, ls.v, t)
	if out == Cancelled {
		return 0, Cancelled
	}
	if fx < ls.bestF {
		ls.bestT, ls.bestF = t, fx
	}
	return fx, Done
}

// commit moves x to step t along v.
func (ls *lineSearch) commit(t float64) {
	ls.x.advance(ls.v, t)
}

// minimize finds the step that minimizes the energy along v, moves x there in
// place and returns the displacement |t|·||v|| together with the energy at
// the accepted point. On cancellation x is moved to the best step found so far.
func (ls *lineSearch) minimize(x NodeSet, v Vector) (displacement, energy float64, out Outcome) {
	ls.x, ls.v = x, v
	ls.bestT, ls.bestF = 0, math.Inf(1)
	ls.eval.stats.LineSearches++

	br, out := ls.bracket()
	if out == Cancelled {
		return ls.cancel()
	}
	t, ft, out := ls.refine(br)
	if out == Cancelled {
		return ls.cancel()
	}

	// The refinement may end on a point no better than the best bracketing
	// evaluation when the bracket was capped; keep whichever is lower.
	if ls.bestF < ft {
		t, ft = ls.bestT, ls.bestF
	}
	ls.commit(t)
	return math.Abs(t) * v.Norm(), ft, Done
}

func (ls *lineSearch) cancel() (float64, float64, Outcome) {
	t := 0.0
	if !math.IsInf(ls.bestF, 1) {
		t = ls.bestT
	}
	ls.commit(t)
	return math.Abs(t) * ls.v.Norm(), ls.bestF, Cancelled
}

// bracket expands downhill from step 0 until f(b) is below both neighbours.
func (ls *lineSearch) bracket() (bracket, Outcome) {
	var br bracket
	var out Outcome

	br.a = 0
	if br.fa, out = ls.f(br.a); out == Cancelled {
		return br, out
	}
	br.b = sqrtEps
	if br.fb, out = ls.f(br.b); out == Cancelled {
		return br, out
	}
	if br.fa < br.fb {
		br.a, br.b = br.b, br.a
		br.fa, br.fb = br.fb, br.fa
	}

	br.c = br.b + golden*(br.b-br.a)
	if br.fc, out = ls.f(br.c); out == Cancelled {
		return br, out
	}

	for step := 0; br.fc <= br.fb && step < maxBracketSteps; step++ {
		r := (br.b - br.a) * (br.fb - br.fc)
		q := (br.b - br.c) * (br.fb - br.fa)
		ulim := br.b + maxExcursion*(br.c-br.b)

		var u, fu float64
		if math.Abs(q-r) < tiny {
			u = br.c + golden*(br.c-br.b)
			if fu, out = ls.f(u); out == Cancelled {
				return br, out
			}
		} else {
			u = br.b - ((br.b-br.c)*q-(br.b-br.a)*r)/(2*(q-r))
			switch {
			case (br.b-u)*(u-br.c) > 0:
				// u lies between b and c.
				if fu, out = ls.f(u); out == Cancelled {
					return br, out
				}
				if fu < br.fc {
					br.a, br.b = br.b, u
					br.fa, br.fb = br.fb, fu
					return br, Done
				}
				if fu > br.fb {
					br.c, br.fc = u, fu
					return br, Done
				}
				u = br.c + golden*(br.c-br.b)
				if fu, out = ls.f(u); out == Cancelled {
					return br, out
				}
			case (br.c-u)*(u-ulim) > 0:
				// u lies between c and the excursion limit.
				if fu, out = ls.f(u); out == Cancelled {
					return br, out
				}
				if fu < br.fc {
					br.b, br.c = br.c, u
					br.fb, br.fc = br.fc, fu
					u = br.c + golden*(br.c-br.b)
					if fu, out = ls.f(u); out == Cancelled {
						return br, out
					}
				}
			case (u-ulim)*(ulim-br.c) >= 0:
				u = ulim
				if fu, out = ls.f(u); out == Cancelled {
					return br, out
				}
			default:
				u = br.c + golden*(br.c-br.b)
				if fu, out = ls.f(u); out == Cancelled {
					return br, out
				}
			}
		}

		br.a, br.b, br.c = br.b, br.c, u
		br.fa, br.fb, br.fc = br.fb, br.fc, fu
	}
	return br, Done
}

// refine runs Brent's method on the bracket and returns the best step and its
// energy.
func (ls *lineSearch) refine(br bracket) (float64, float64, Outcome) {
	a, b := br.a, br.c
	if a > b {
		a, b = b, a
	}

	x, w, v := br.b, br.b, br.b
	fx, fw, fv := br.fb, br.fb, br.fb
	var d, e float64

	for step := 0; step < maxBrentSteps; step++ {
		xm := 0.5 * (a + b)
		tol1 := sqrtEps*math.Abs(x) + zeps
		tol2 := 2 * tol1
		if math.Abs(x-xm) <= tol2-0.5*(b-a) {
			break
		}

		bisect := true
		if math.Abs(e) > tol1 {
			r := (x - w) * (fx - fv)
			q := (x - v) * (fx - fw)
			p := (x-v)*q - (x-w)*r
			q = 2 * (q - r)
			if q > 0 {
				p = -p
			}
			q = math.Abs(q)
			etemp := e
			e = d
			// NaN from a degenerate fit fails every comparison and falls
			// through to golden section.
			if math.Abs(p) < math.Abs(0.5*q*etemp) && p > q*(a-x) && p < q*(b-x) {
				d = p / q
				u := x + d
				if u-a < tol2 || b-u < tol2 {
					d = math.Copysign(tol1, xm-x)
				}
				bisect = false
			}
		}
		if bisect {
			if x >= xm {
				e = a - x
			} else {
				e = b - x
			}
			d = cgold * e
		}

		u := x + d
		if math.Abs(d) < tol1 {
			u = x + math.Copysign(tol1, d)
		}
		fu, out := ls.f(u)
		if out == Cancelled {
			return x, fx, Cancelled
		}

		if fu <= fx {
			if u >= x {
				a = x
			} else {
				b = x
			}
			v, w, x = w, x, u
			fv, fw, fx = fw, fx, fu
			if ls.accepted != nil {
				ls.accepted(x, fx)
			}
			continue
		}

		if u < x {
			a = u
		} else {
			b = u
		}
		if fu <= fw || w == x {
			v, w = w, u
			fv, fw = fw, fu
		} else if fu <= fv || v == x || v == w {
			v, fv = u, fu
		}
	}
	return x, fx, Done
}
