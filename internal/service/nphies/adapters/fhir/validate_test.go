package fhir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fhirmodel "github.com/rcm-ksa/nphies-gateway/internal/service/nphies/adapters/fhir/model"
)

func TestValidateBundle(t *testing.T) {
	c := newTestComposer(t)

	valid := func() *fhirmodel.Bundle {
		b, err := c.BuildEligibilityRequest(samplePatient(), "7001071327", "corr")
		require.NoError(t, err)
		return b
	}

	t.Run("Valid", func(t *testing.T) {
		assert.NoError(t, ValidateBundle(valid()))
	})

	t.Run("NoEntries", func(t *testing.T) {
		b := valid()
		b.Entry = nil
		assert.ErrorIs(t, ValidateBundle(b), ErrNoEntries)
	})

	t.Run("HeaderNotFirst", func(t *testing.T) {
		b := valid()
		b.Entry[0], b.Entry[1] = b.Entry[1], b.Entry[0]
		assert.ErrorIs(t, ValidateBundle(b), ErrHeaderNotFirst)
	})

	t.Run("MissingID", func(t *testing.T) {
		b := valid()
		b.Entry[1].Resource.(*fhirmodel.Patient).ID = ""
		assert.ErrorIs(t, ValidateBundle(b), ErrMissingResourceID)
	})

	t.Run("WrongProfile", func(t *testing.T) {
		b := valid()
		b.Entry[1].Resource.(*fhirmodel.Patient).Meta = &fhirmodel.Meta{Profile: []string{ProfileFor(KindCoverage)}}
		err := ValidateBundle(b)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "profile")
	})

	t.Run("NilResource", func(t *testing.T) {
		b := valid()
		b.Entry[2].Resource = nil
		assert.Error(t, ValidateBundle(b))
	})
}

func TestProfileFor(t *testing.T) {
	for _, kind := range []string{KindBundle, KindMessageHeader, KindPatient, KindCoverage, KindClaim, KindCoverageEligibilityRequest, KindCommunication} {
		assert.NotEmpty(t, ProfileFor(kind), kind)
	}
	assert.Empty(t, ProfileFor(KindOperationOutcome))
	assert.Nil(t, MetaFor(KindOperationOutcome))
}
