package fhir

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMessageID(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		id := NewMessageID()
		parsed, err := uuid.Parse(id)
		require.NoError(t, err)
		assert.Equal(t, uuid.Version(4), parsed.Version())

		_, dup := seen[id]
		require.False(t, dup, "duplicate id %s", id)
		seen[id] = struct{}{}
	}
}

func TestBusinessID(t *testing.T) {
	a := BusinessID(KindClaim, "corr-1", "7001071327", "MB-1")
	b := BusinessID(KindClaim, "corr-1", "7001071327", "MB-1")
	assert.Equal(t, a, b)

	parsed, err := uuid.Parse(a)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(5), parsed.Version())

	assert.NotEqual(t, a, BusinessID(KindClaim, "corr-2", "7001071327", "MB-1"))
	assert.NotEqual(t, a, BusinessID(KindCommunication, "corr-1", "7001071327", "MB-1"))
	assert.NotEqual(t, a, BusinessID(KindClaim, "corr-1", "7001071327", "MB-2"))
	assert.NotEqual(t, a, BusinessID(KindClaim, "corr-1", "7001071327"))
}

func TestBusinessID_SeparatorsInFields(t *testing.T) {
	cases := []struct {
		name string
		a, b []string
	}{
		{"pipe moves between fields", []string{"MB|1", "2"}, []string{"MB", "1|2"}},
		{"colon and length look-alike", []string{"2:ab", ""}, []string{"2", "ab"}},
		{"empty field vs missing field", []string{"MB", ""}, []string{"MB"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.NotEqual(t,
				BusinessID(KindCoverageEligibilityRequest, "c", tc.a...),
				BusinessID(KindCoverageEligibilityRequest, "c", tc.b...))
		})
	}

	// correlation id cannot absorb the kind either
	assert.NotEqual(t, BusinessID("A|B", "C"), BusinessID("A", "B|C"))
}

func TestBuildEligibilityRequest_DistinctPatientsNeverShareID(t *testing.T) {
	c := newTestComposer(t)
	first, err := c.BuildEligibilityRequest(PatientData{MemberID: "MB|1", NationalID: "2"}, "7001071327", "c")
	require.NoError(t, err)
	second, err := c.BuildEligibilityRequest(PatientData{MemberID: "MB", NationalID: "1|2"}, "7001071327", "c")
	require.NoError(t, err)

	assert.NotEqual(t,
		first.Find(KindCoverageEligibilityRequest).ResourceID(),
		second.Find(KindCoverageEligibilityRequest).ResourceID())
}
