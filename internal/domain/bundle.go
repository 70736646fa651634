package domain

import "fmt"

// MissingFieldError reports that a factor or metric requested a panel field
// the upstream data does not provide. It is not recoverable inside the core:
// the caller decides whether to skip the factor.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("required field %q not present in panel bundle", e.Field)
}

// PanelBundle is the set of named panels (close, volume, peTTM, ...) a
// factor computes from. All panels share the same date index and symbols.
type PanelBundle map[string]*Panel

// Field returns the panel for a field name, or a MissingFieldError.
func (b PanelBundle) Field(name string) (*Panel, error) {
	p, ok := b[name]
	if !ok || p == nil {
		return nil, &MissingFieldError{Field: name}
	}
	return p, nil
}

// Has reports whether a field is present.
func (b PanelBundle) Has(name string) bool {
	p, ok := b[name]
	return ok && p != nil
}
