// Package factors holds the factor library: pure transforms from a bundle of
// raw data panels to one factor panel, plus a factory for building them by
// name.
package factors

import (
	"equity-factor-lab/internal/domain"
)

// Factor computes one candidate predictive signal from raw data panels.
// Implementations are pure: same bundle in, same panel out, no retained
// state.
type Factor interface {
	// Name identifies the factor in results and reports.
	Name() string
	// Description is a one-line human-readable summary.
	Description() string
	// RequiredFields lists the bundle fields the factor reads.
	RequiredFields() []string
	// Calculate produces the factor panel. A bundle lacking a required
	// field yields a domain.MissingFieldError.
	Calculate(bundle domain.PanelBundle) (*domain.Panel, error)
}

// requireFields fetches every named field, returning the first
// MissingFieldError encountered.
func requireFields(bundle domain.PanelBundle, names ...string) ([]*domain.Panel, error) {
	out := make([]*domain.Panel, len(names))
	for i, name := range names {
		p, err := bundle.Field(name)
		if err != nil {
			return nil, err
		}
		out[i] = p
	}
	return out, nil
}
