package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReferenceTo(t *testing.T) {
	p := &Patient{DomainResource: DomainResource{ResourceType: "Patient", ID: "patient-1"}}
	assert.Equal(t, "Patient/patient-1", ReferenceTo(p))
	assert.Equal(t, "", p.Profile())
}

func TestBundleHeaderAndFind(t *testing.T) {
	mh := &MessageHeader{DomainResource: DomainResource{ResourceType: "MessageHeader", ID: "mh"}}
	p := &Patient{DomainResource: DomainResource{ResourceType: "Patient", ID: "p"}}

	b := &Bundle{Type: BundleTypeMessage, Entry: []BundleEntry{{Resource: mh}, {Resource: p}}}
	assert.Same(t, mh, b.Header())
	assert.Equal(t, p, b.Find("Patient"))
	assert.Nil(t, b.Find("Claim"))

	reordered := &Bundle{Type: BundleTypeMessage, Entry: []BundleEntry{{Resource: p}, {Resource: mh}}}
	assert.Nil(t, reordered.Header())
	assert.Nil(t, (&Bundle{}).Header())
}

func TestOutcomeBuilder(t *testing.T) {
	oo := NewOutcomeBuilder().
		AddIssue(IssueSeverityError, IssueTypeRequired, "member_id is required").
		AddIssueAt(IssueSeverityWarning, IssueTypeInvalid, "unknown payer", "payer_code").
		Build()

	raw, err := json.Marshal(oo)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"resourceType": "OperationOutcome",
		"id": "",
		"issue": [
			{"severity": "error", "code": "required", "details": {"text": "member_id is required"}},
			{"severity": "warning", "code": "invalid", "details": {"text": "unknown payer"}, "expression": ["payer_code"]}
		]
	}`, string(raw))
}

func TestMoneyKeepsDecimalLiteral(t *testing.T) {
	raw, err := json.Marshal(Money{Value: json.Number("350.10"), Currency: "SAR"})
	require.NoError(t, err)
	assert.Equal(t, `{"value":350.10,"currency":"SAR"}`, string(raw))
}
