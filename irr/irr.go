// Package irr computes the internal rate of return of dated cash flows.
//
// The rate r is annual: a flow on day t is discounted by (1+r)^(days/365)
// where days is counted from the earliest flow.
package irr

import (
	"errors"
	"math"
	"slices"

	"github.com/etnz/trades/date"
)

// ErrUndefined is returned when the flows have no rate of return: no sign
// change, or no root found within the iteration budget.
var ErrUndefined = errors.New("irr is undefined")

const (
	guess         = 0.05
	maxIterations = 100
	tolerance     = 1e-10
	// rates are searched above -100%.
	lowest = -0.999999
)

// Flow is a signed amount at a date: negative for money paid, positive for money received.
type Flow struct {
	On     date.Date
	Amount float64
}

// Calculate returns the annual rate making the discounted sum of flows zero.
func Calculate(flows []Flow) (float64, error) {
	if len(flows) == 0 {
		return 0, ErrUndefined
	}
	first := slices.MinFunc(flows, func(a, b Flow) int { return a.On.Compare(b.On) }).On

	years := make([]float64, len(flows))
	amounts := make([]float64, len(flows))
	var pos, neg, sameDay = false, false, true
	sum := 0.0
	for i, f := range flows {
		years[i] = float64(date.DaysBetween(first, f.On)) / 365
		amounts[i] = f.Amount
		sum += f.Amount
		if years[i] != 0 {
			sameDay = false
		}
		if f.Amount > 0 {
			pos = true
		}
		if f.Amount < 0 {
			neg = true
		}
	}
	if sameDay {
		// nothing is discounted, any rate works when the flows cancel out.
		if math.Abs(sum) < tolerance*(1+maxAbs(amounts)) {
			return 0, nil
		}
		return 0, ErrUndefined
	}
	if !pos || !neg {
		return 0, ErrUndefined
	}

	npv := func(r float64) (v, dv float64) {
		for i, a := range amounts {
			d := math.Pow(1+r, -years[i])
			v += a * d
			dv -= years[i] * a * d / (1 + r)
		}
		return v, dv
	}

	if r, ok := newton(npv); ok {
		return r, nil
	}
	if r, ok := bisect(npv); ok {
		return r, nil
	}
	return 0, ErrUndefined
}

func newton(npv func(float64) (float64, float64)) (float64, bool) {
	r := guess
	for range maxIterations {
		v, dv := npv(r)
		if dv == 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, false
		}
		next := r - v/dv
		if next <= -1 || math.IsNaN(next) {
			return 0, false
		}
		if math.Abs(next-r) < tolerance {
			return next, true
		}
		r = next
	}
	return 0, false
}

// bisect looks for a bracket [lowest, hi] and narrows it down.
func bisect(npv func(float64) (float64, float64)) (float64, bool) {
	lo, hi := lowest, 1.0
	vlo, _ := npv(lo)
	vhi, _ := npv(hi)
	for vlo*vhi > 0 {
		if hi > 1e6 {
			return 0, false
		}
		hi *= 2
		vhi, _ = npv(hi)
	}
	for range 10 * maxIterations {
		mid := (lo + hi) / 2
		vmid, _ := npv(mid)
		if vmid == 0 || (hi-lo)/2 < tolerance {
			return mid, true
		}
		if vmid*vlo > 0 {
			lo, vlo = mid, vmid
		} else {
			hi = mid
		}
	}
	return 0, false
}

func maxAbs(values []float64) float64 {
	m := 0.0
	for _, v := range values {
		m = max(m, math.Abs(v))
	}
	return m
}
