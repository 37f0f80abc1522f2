package fhir

import (
	"errors"
	"fmt"

	fhirmodel "github.com/rcm-ksa/nphies-gateway/internal/service/nphies/adapters/fhir/model"
)

var (
	ErrNoEntries         = errors.New("bundle has no entries")
	ErrHeaderNotFirst    = errors.New("message bundle must start with a MessageHeader")
	ErrMissingResourceID = errors.New("resource has no id")
)

// ValidateBundle checks the structural rules a receiver relies on before a
// bundle is put on the wire: a message bundle starts with its MessageHeader
// and every profiled resource carries the profile from the table.
func ValidateBundle(b *fhirmodel.Bundle) error {
	if len(b.Entry) == 0 {
		return ErrNoEntries
	}
	if b.Type == fhirmodel.BundleTypeMessage && b.Header() == nil {
		return ErrHeaderNotFirst
	}

	for i, e := range b.Entry {
		if e.Resource == nil {
			return fmt.Errorf("entry[%d]: no resource", i)
		}
		kind := e.Resource.Kind()
		if kind == "" {
			return fmt.Errorf("entry[%d]: no resourceType", i)
		}
		if e.Resource.ResourceID() == "" {
			return fmt.Errorf("entry[%d] %s: %w", i, kind, ErrMissingResourceID)
		}
		want := ProfileFor(kind)
		if want == "" {
			continue
		}
		if got := e.Resource.Profile(); got != want {
			return fmt.Errorf("entry[%d] %s: profile %q, want %q", i, kind, got, want)
		}
	}
	return nil
}
