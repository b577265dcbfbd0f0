package entity

import (
	"errors"
	"fmt"
)

// IntRange is an inclusive range of non-negative integers.
type IntRange struct {
	Min int `yaml:"min"`
	Max int `yaml:"max"`
}

// Validate returns ErrInvalidRange when the range is inverted or negative.
func (r IntRange) Validate() error {
	if r.Min < 0 {
		return fmt.Errorf("%w: min %d is negative", ErrInvalidRange, r.Min)
	}
	if r.Min > r.Max {
		return fmt.Errorf("%w: min %d is greater than max %d", ErrInvalidRange, r.Min, r.Max)
	}
	return nil
}

// Contains reports whether v lies in [Min, Max].
func (r IntRange) Contains(v int) bool {
	return v >= r.Min && v <= r.Max
}

// String formats the range as "[min,max]".
func (r IntRange) String() string {
	return fmt.Sprintf("[%d,%d]", r.Min, r.Max)
}

// FloatRange is an inclusive range of non-negative real numbers.
type FloatRange struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// Validate returns ErrInvalidRange when the range is inverted or negative.
func (r FloatRange) Validate() error {
	if r.Min < 0 {
		return fmt.Errorf("%w: min %g is negative", ErrInvalidRange, r.Min)
	}
	if r.Min > r.Max {
		return fmt.Errorf("%w: min %g is greater than max %g", ErrInvalidRange, r.Min, r.Max)
	}
	return nil
}

// Contains reports whether v lies in [Min, Max].
func (r FloatRange) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// String formats the range as "[min,max]".
func (r FloatRange) String() string {
	return fmt.Sprintf("[%g,%g]", r.Min, r.Max)
}

// Profile holds the ranges a sampling cycle draws from.
//
// HighPendingMode selects HighPending instead of Pending for the pending
// count. It is off by default and can be switched on through configuration
// or a reloaded profile file, e.g. to drive alert-testing scenarios.
type Profile struct {
	Pending         IntRange
	HighPending     IntRange
	OnTheWay        IntRange
	Delivered       IntRange
	AvgTimeSeconds  FloatRange
	HighPendingMode bool
}

// DefaultProfile returns the built-in ranges.
func DefaultProfile() Profile {
	return Profile{
		Pending:        IntRange{Min: 10, Max: 20},
		HighPending:    IntRange{Min: 50, Max: 100},
		OnTheWay:       IntRange{Min: 5, Max: 20},
		Delivered:      IntRange{Min: 30, Max: 70},
		AvgTimeSeconds: FloatRange{Min: 15.0, Max: 45.0},
	}
}

// PendingRange returns the range used for the pending count under the
// current mode.
func (p Profile) PendingRange() IntRange {
	if p.HighPendingMode {
		return p.HighPending
	}
	return p.Pending
}

// Validate checks every range and reports all failures at once.
// The returned error wraps ErrInvalidProfile and one ValidationError per field.
func (p Profile) Validate() error {
	fields := []struct {
		name string
		err  error
	}{
		{"pending", p.Pending.Validate()},
		{"high_pending", p.HighPending.Validate()},
		{"on_the_way", p.OnTheWay.Validate()},
		{"delivered", p.Delivered.Validate()},
		{"avg_time_seconds", p.AvgTimeSeconds.Validate()},
	}

	var errs []error
	for _, f := range fields {
		if f.err != nil {
			errs = append(errs, &ValidationError{Field: f.name, Err: f.err})
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidProfile, errors.Join(errs...))
}
