package entity

import "fmt"

// Sample is one synthetic delivery observation.
// Delivered only contributes to Total and is never published on its own.
type Sample struct {
	Pending   int
	OnTheWay  int
	Delivered int
	// AvgTime is the average delivery time in seconds.
	AvgTime float64
}

// Total returns Pending + OnTheWay + Delivered.
func (s Sample) Total() int {
	return s.Pending + s.OnTheWay + s.Delivered
}

// String renders the sample the way the sampler logs it.
func (s Sample) String() string {
	return fmt.Sprintf("Pending:%d On-the-way:%d AvgTime:%.2fs Total:%d",
		s.Pending, s.OnTheWay, s.AvgTime, s.Total())
}

// Validate checks that every field of the sample lies within the ranges of p.
func (s Sample) Validate(p Profile) error {
	if r := p.PendingRange(); !r.Contains(s.Pending) {
		return &ValidationError{Field: "pending", Err: fmt.Errorf("%w: %d not in %s", ErrOutOfRange, s.Pending, r)}
	}
	if !p.OnTheWay.Contains(s.OnTheWay) {
		return &ValidationError{Field: "on_the_way", Err: fmt.Errorf("%w: %d not in %s", ErrOutOfRange, s.OnTheWay, p.OnTheWay)}
	}
	if !p.Delivered.Contains(s.Delivered) {
		return &ValidationError{Field: "delivered", Err: fmt.Errorf("%w: %d not in %s", ErrOutOfRange, s.Delivered, p.Delivered)}
	}
	if !p.AvgTimeSeconds.Contains(s.AvgTime) {
		return &ValidationError{Field: "avg_time_seconds", Err: fmt.Errorf("%w: %g not in %s", ErrOutOfRange, s.AvgTime, p.AvgTimeSeconds)}
	}
	return nil
}
