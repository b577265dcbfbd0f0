// Package profile loads sampling profiles from YAML files and reloads them
// when the file changes.
//
// A profile document may contain any subset of the sections below. Absent
// sections, and absent keys inside a section, keep the values of the base
// profile they are applied to:
//
//	pending: {min: 10, max: 20}
//	high_pending: {min: 50, max: 100}
//	on_the_way: {min: 5, max: 20}
//	delivered: {min: 30, max: 70}
//	avg_time_seconds: {min: 15, max: 45}
//	high_pending_mode: false
package profile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"delivery-metrics/internal/domain/entity"
)

type document struct {
	Pending         entity.IntRange   `yaml:"pending"`
	HighPending     entity.IntRange   `yaml:"high_pending"`
	OnTheWay        entity.IntRange   `yaml:"on_the_way"`
	Delivered       entity.IntRange   `yaml:"delivered"`
	AvgTimeSeconds  entity.FloatRange `yaml:"avg_time_seconds"`
	HighPendingMode *bool             `yaml:"high_pending_mode"`
}

// Parse applies the YAML document in data on top of base and validates the
// result. Unknown keys are rejected. An empty document yields base.
func Parse(data []byte, base entity.Profile) (entity.Profile, error) {
	doc := document{
		Pending:        base.Pending,
		HighPending:    base.HighPending,
		OnTheWay:       base.OnTheWay,
		Delivered:      base.Delivered,
		AvgTimeSeconds: base.AvgTimeSeconds,
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return entity.Profile{}, fmt.Errorf("%w: %w", entity.ErrInvalidProfile, err)
	}

	p := entity.Profile{
		Pending:         doc.Pending,
		HighPending:     doc.HighPending,
		OnTheWay:        doc.OnTheWay,
		Delivered:       doc.Delivered,
		AvgTimeSeconds:  doc.AvgTimeSeconds,
		HighPendingMode: base.HighPendingMode,
	}
	if doc.HighPendingMode != nil {
		p.HighPendingMode = *doc.HighPendingMode
	}

	if err := p.Validate(); err != nil {
		return entity.Profile{}, err
	}
	return p, nil
}

// Load reads the profile file at path and applies it on top of base.
func Load(path string, base entity.Profile) (entity.Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return entity.Profile{}, fmt.Errorf("read profile: %w", err)
	}

	p, err := Parse(data, base)
	if err != nil {
		return entity.Profile{}, fmt.Errorf("load profile %s: %w", path, err)
	}
	return p, nil
}
