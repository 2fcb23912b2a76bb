// Package options contains utility structs and functions for validating
// stage and pipeline configurations. Invalid values are collected as
// anomalies, logged, and replaced by fallbacks; validation never fails
// the pipeline.
package options

import (
	"iter"
	"slices"

	"github.com/FerroO2000/flusso/telemetry"
)

type anomaly struct {
	field    string
	reason   string
	actual   any
	fallback any
}

// AnomalyCollector is an utility struct for collecting anomalies.
type AnomalyCollector struct {
	anomalies []*anomaly
}

func newAnomalyCollector() *AnomalyCollector {
	return &AnomalyCollector{
		anomalies: []*anomaly{},
	}
}

func (ac *AnomalyCollector) add(field, reason string, actual, fallback any) {
	ac.anomalies = append(ac.anomalies, &anomaly{
		field:    field,
		reason:   reason,
		actual:   actual,
		fallback: fallback,
	})
}

func (ac *AnomalyCollector) iter() iter.Seq[*anomaly] {
	return slices.Values(ac.anomalies)
}

// Config defines the minimal interface for a configuration
// in order to be validated.
type Config interface {
	// Validate checks the configuration.
	Validate(ac *AnomalyCollector)
}

// Validator is an utility struct for validating a configuration.
type Validator struct {
	tel *telemetry.Telemetry

	anomalyCollector *AnomalyCollector
}

// NewValidator returns a new validator.
func NewValidator(tel *telemetry.Telemetry) *Validator {
	return &Validator{
		tel: tel,

		anomalyCollector: newAnomalyCollector(),
	}
}

// Validate validates the given configuration.
func (v *Validator) Validate(config Config) {
	config.Validate(v.anomalyCollector)

	for anomaly := range v.anomalyCollector.iter() {
		v.tel.LogWarn("config anomaly",
			"field", anomaly.field, "reason", anomaly.reason,
			"actual", anomaly.actual, "fallback", anomaly.fallback)
	}
}
