package tracing

import (
	"fmt"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Sampler strategies accepted in telemetry.tracing.sampler.
const (
	SamplerAlways = "always"
	SamplerNever  = "never"
	SamplerRatio  = "ratio"
)

// createSampler returns a parent-based sampler. Sampling is decided once per
// run span and rows inherit it, so a file is traced whole or not at all.
func createSampler(strategy string, ratio float64) (sdktrace.Sampler, error) {
	switch strategy {
	case SamplerAlways, "":
		return sdktrace.ParentBased(sdktrace.AlwaysSample()), nil
	case SamplerNever:
		return sdktrace.ParentBased(sdktrace.NeverSample()), nil
	case SamplerRatio:
		if ratio < 0 || ratio > 1 {
			return nil, fmt.Errorf("sample ratio %v outside [0, 1]", ratio)
		}
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio)), nil
	}
	return nil, fmt.Errorf("unknown sampler %q (valid: always, never, ratio)", strategy)
}
