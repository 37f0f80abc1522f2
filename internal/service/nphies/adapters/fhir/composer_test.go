package fhir

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/Pallinder/go-randomdata"
	"github.com/cockroachdb/apd/v3"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fhirmodel "github.com/rcm-ksa/nphies-gateway/internal/service/nphies/adapters/fhir/model"
	"github.com/rcm-ksa/nphies-gateway/internal/service/nphies/payers"
)

var fixedNow = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

func samplePatient() PatientData {
	return PatientData{
		MemberID:   "TEST-MB-001",
		NationalID: "1234567890",
		GivenName:  "Ahmed",
		FamilyName: "Al-Rashid",
		Gender:     "male",
		BirthDate:  "1990-01-15",
	}
}

func newTestComposer(t *testing.T) *Composer {
	t.Helper()
	dir, err := payers.Default()
	require.NoError(t, err)
	return NewComposer(Options{
		ProviderLicense: "PR-FHIR",
		ProviderBaseURL: "http://provider.com.sa/",
	}, dir).WithClock(func() time.Time { return fixedNow })
}

func TestBuildPatientResource(t *testing.T) {
	c := newTestComposer(t)

	p, err := c.BuildPatientResource(samplePatient())
	require.NoError(t, err)

	want := &fhirmodel.Patient{
		DomainResource: fhirmodel.DomainResource{
			ResourceType: "Patient",
			ID:           "patient-TEST-MB-001",
			Meta:         &fhirmodel.Meta{Profile: []string{"http://nphies.sa/fhir/ksa/nphies-fs/StructureDefinition/patient"}},
		},
		Identifier: []fhirmodel.Identifier{
			{Type: identifierType("MB", "Member Number"), System: sysMemberID, Value: "TEST-MB-001"},
			{Type: identifierType("NI", "National unique individual identifier"), System: sysNationalID, Value: "1234567890"},
		},
		Active: true,
		Name: []fhirmodel.HumanName{{
			Use:    "official",
			Text:   "Ahmed Al-Rashid",
			Family: "Al-Rashid",
			Given:  []string{"Ahmed"},
		}},
		Gender:    "male",
		BirthDate: "1990-01-15",
	}
	if diff := cmp.Diff(want, p); diff != "" {
		t.Errorf("BuildPatientResource() mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildPatientResource_RandomMembers(t *testing.T) {
	c := newTestComposer(t)

	for i := 0; i < 50; i++ {
		member := fmt.Sprintf("%s-%d", randomdata.Alphanumeric(8), randomdata.Number(1, 100000))
		in := PatientData{
			MemberID:   member,
			NationalID: randomdata.StringNumberExt(1, "", 10),
			GivenName:  randomdata.FirstName(randomdata.RandomGender),
			FamilyName: randomdata.LastName(),
		}

		p, err := c.BuildPatientResource(in)
		require.NoError(t, err)
		assert.Equal(t, "Patient", p.ResourceType)
		assert.Equal(t, "patient-"+member, p.ID)
	}
}

func TestBuildPatientResource_OptionalFieldsDefaultToEmpty(t *testing.T) {
	c := newTestComposer(t)

	p, err := c.BuildPatientResource(PatientData{MemberID: "MB-2"})
	require.NoError(t, err)

	raw, err := json.Marshal(p)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "", decoded["gender"])
	assert.Equal(t, "", decoded["birthDate"])

	name := decoded["name"].([]any)[0].(map[string]any)
	assert.Equal(t, "", name["family"])
	assert.Equal(t, []any{""}, name["given"])
}

func TestBuildPatientResource_MissingMemberID(t *testing.T) {
	c := newTestComposer(t)

	for _, member := range []string{"", "   "} {
		_, err := c.BuildPatientResource(PatientData{MemberID: member, GivenName: "Sara"})
		var missing *MissingRequiredFieldError
		require.True(t, errors.As(err, &missing), "member %q", member)
		assert.Equal(t, "member_id", missing.Field)
	}
}

func TestBuildCoverageResource(t *testing.T) {
	c := newTestComposer(t)

	cov := c.BuildCoverageResource("patient-MB-9", "7001071327", "MB-9", "POL-77")

	assert.Equal(t, "Coverage", cov.ResourceType)
	assert.Equal(t, "active", cov.Status)
	assert.Equal(t, "Patient/patient-MB-9", cov.Beneficiary.Reference)
	assert.Equal(t, "MB-9", cov.SubscriberID)
	require.Len(t, cov.Payor, 1)
	assert.Equal(t, "7001071327", cov.Payor[0].Identifier.Value)
	assert.Equal(t, sysPayerLicense, cov.Payor[0].Identifier.System)
	assert.Equal(t, "Bupa Arabia for Cooperative Insurance", cov.Payor[0].Display)
	assert.Equal(t, "POL-77", cov.Identifier[0].Value)
	assert.Equal(t, ProfileFor(KindCoverage), cov.Profile())
}

func TestBuildEligibilityRequest_EndToEnd(t *testing.T) {
	c := newTestComposer(t)

	b, err := c.BuildEligibilityRequest(samplePatient(), "7001071327", "corr-1")
	require.NoError(t, err)
	require.NoError(t, ValidateBundle(b))

	assert.Equal(t, "Bundle", b.ResourceType)
	assert.Equal(t, "message", b.Type)
	require.Len(t, b.Entry, 3)

	header, ok := b.Entry[0].Resource.(*fhirmodel.MessageHeader)
	require.True(t, ok)
	assert.Equal(t, eventEligibility, header.EventCoding.Code)
	assert.Equal(t, "urn:uuid:"+header.ID, b.Entry[0].FullURL)

	assert.Equal(t, "Patient", b.Entry[1].Resource.Kind())

	req, ok := b.Entry[2].Resource.(*fhirmodel.CoverageEligibilityRequest)
	require.True(t, ok)
	assert.Equal(t, "CoverageEligibilityRequest", req.ResourceType)
	assert.Equal(t, "active", req.Status)
	assert.Contains(t, req.Purpose, "benefits")
	assert.Equal(t, "Patient/patient-TEST-MB-001", req.Patient.Reference)
	assert.Equal(t, "7001071327", req.Insurer.Identifier.Value)
	assert.Equal(t, "PR-FHIR", req.Provider.Identifier.Value)
	assert.Equal(t, "2024-03-01", req.ServicedDate)

	// the header focuses the request entry
	assert.Equal(t, b.Entry[2].FullURL, header.Focus[0].Reference)
	assert.Equal(t, "http://provider.com.sa/CoverageEligibilityRequest/"+req.ID, b.Entry[2].FullURL)
}

func TestBuildEligibilityRequest_IdempotentIdentifiers(t *testing.T) {
	c := newTestComposer(t)

	first, err := c.BuildEligibilityRequest(samplePatient(), "7001071327", "corr-42")
	require.NoError(t, err)
	second, err := c.BuildEligibilityRequest(samplePatient(), "7001071327", "corr-42")
	require.NoError(t, err)

	r1 := first.Find(KindCoverageEligibilityRequest).(*fhirmodel.CoverageEligibilityRequest)
	r2 := second.Find(KindCoverageEligibilityRequest).(*fhirmodel.CoverageEligibilityRequest)
	assert.Equal(t, r1.ID, r2.ID)
	assert.Equal(t, r1.Identifier, r2.Identifier)

	// send-time ids come from the random path
	assert.NotEqual(t, first.ID, second.ID)
	assert.NotEqual(t, first.Header().ID, second.Header().ID)

	other, err := c.BuildEligibilityRequest(samplePatient(), "7001071327", "corr-43")
	require.NoError(t, err)
	assert.NotEqual(t, r1.ID, other.Find(KindCoverageEligibilityRequest).ResourceID())
}

func TestBuildEligibilityRequest_Errors(t *testing.T) {
	c := newTestComposer(t)

	_, err := c.BuildEligibilityRequest(PatientData{}, "7001071327", "corr")
	var missing *MissingRequiredFieldError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "member_id", missing.Field)

	_, err = c.BuildEligibilityRequest(samplePatient(), "", "corr")
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "payer_code", missing.Field)
}

func sampleClaim() ClaimData {
	return ClaimData{
		Patient:      samplePatient(),
		PolicyNumber: "POL-1",
		Items: []ServiceItem{
			{Code: "83600-00-00", Display: "Consultation", Quantity: "1", UnitPrice: "150"},
			{Code: "73050-00-10", Display: "X-ray", Quantity: "2", UnitPrice: "99.995"},
			{Code: "92015-00-00", UnitPrice: "0.10"},
		},
	}
}

func TestBuildClaimBundle(t *testing.T) {
	c := newTestComposer(t)

	b, err := c.BuildClaimBundle(sampleClaim(), "7001071327", "corr-claim")
	require.NoError(t, err)
	require.NoError(t, ValidateBundle(b))

	require.Len(t, b.Entry, 4)
	assert.Equal(t, KindMessageHeader, b.Entry[0].Resource.Kind())
	assert.Equal(t, KindClaim, b.Entry[1].Resource.Kind())
	assert.Equal(t, KindPatient, b.Entry[2].Resource.Kind())
	assert.Equal(t, KindCoverage, b.Entry[3].Resource.Kind())

	claim := b.Entry[1].Resource.(*fhirmodel.Claim)
	assert.Equal(t, "active", claim.Status)
	assert.Equal(t, "claim", claim.Use)
	assert.Equal(t, "institutional", claim.Type.Coding[0].Code)
	assert.Equal(t, "Coverage/coverage-TEST-MB-001", claim.Insurance[0].Coverage.Reference)

	require.Len(t, claim.Item, 3)
	for i, it := range claim.Item {
		assert.Equal(t, i+1, it.Sequence)
		assert.Equal(t, sampleClaim().Items[i].Code, it.ProductOrService.Coding[0].Code)
	}
	assert.Equal(t, "150.00", string(claim.Item[0].Net.Value))
	assert.Equal(t, "200.00", string(claim.Item[1].Net.Value))
	assert.Equal(t, "1", string(claim.Item[2].Quantity.Value))
	assert.Equal(t, "0.10", string(claim.Item[2].Net.Value))

	assert.Equal(t, "350.10", string(claim.Total.Value))
	assert.Equal(t, "SAR", claim.Total.Currency)
}

func TestBuildClaimBundle_TotalIsSumOfItems(t *testing.T) {
	c := newTestComposer(t)

	for n := 1; n <= 20; n++ {
		claim := ClaimData{Patient: samplePatient()}
		for i := 0; i < n; i++ {
			claim.Items = append(claim.Items, ServiceItem{
				Code:      fmt.Sprintf("SVC-%d", i),
				Quantity:  json.Number(fmt.Sprint(randomdata.Number(1, 5))),
				UnitPrice: json.Number(fmt.Sprintf("%d.%02d", randomdata.Number(0, 5000), randomdata.Number(0, 100))),
			})
		}

		b, err := c.BuildClaimBundle(claim, "7001071327", fmt.Sprint("corr-", n))
		require.NoError(t, err)
		res := b.Find(KindClaim).(*fhirmodel.Claim)
		require.Len(t, res.Item, n)

		sum := new(apd.Decimal)
		for _, it := range res.Item {
			net, _, err := apd.NewFromString(string(it.Net.Value))
			require.NoError(t, err)
			_, err = money.Add(sum, sum, net)
			require.NoError(t, err)
		}
		total, _, err := apd.NewFromString(string(res.Total.Value))
		require.NoError(t, err)
		assert.Equal(t, 0, sum.Cmp(total), "sum %s total %s", sum, total)
		assert.Equal(t, "SAR", res.Total.Currency)
	}
}

func TestBuildClaimBundle_IdempotentIdentifier(t *testing.T) {
	c := newTestComposer(t)

	b1, err := c.BuildClaimBundle(sampleClaim(), "7001071327", "corr-x")
	require.NoError(t, err)
	b2, err := c.BuildClaimBundle(sampleClaim(), "7001071327", "corr-x")
	require.NoError(t, err)
	assert.Equal(t, b1.Find(KindClaim).ResourceID(), b2.Find(KindClaim).ResourceID())

	changed := sampleClaim()
	changed.Items[0].UnitPrice = "151"
	b3, err := c.BuildClaimBundle(changed, "7001071327", "corr-x")
	require.NoError(t, err)
	assert.NotEqual(t, b1.Find(KindClaim).ResourceID(), b3.Find(KindClaim).ResourceID())
}

func TestBuildClaimBundle_Errors(t *testing.T) {
	c := newTestComposer(t)

	tests := []struct {
		name    string
		mutate  func(*ClaimData)
		missing string
		invalid string
	}{
		{"NoItems", func(d *ClaimData) { d.Items = nil }, "items", ""},
		{"NoItemCode", func(d *ClaimData) { d.Items[1].Code = "" }, "items[1].code", ""},
		{"NoMember", func(d *ClaimData) { d.Patient.MemberID = "" }, "member_id", ""},
		{"BadPrice", func(d *ClaimData) { d.Items[0].UnitPrice = "abc" }, "", "items[0].unit_price"},
		{"NegativePrice", func(d *ClaimData) { d.Items[0].UnitPrice = "-1" }, "", "items[0].unit_price"},
		{"ZeroQuantity", func(d *ClaimData) { d.Items[0].Quantity = "0" }, "", "items[0].quantity"},
		{"InfiniteQuantity", func(d *ClaimData) { d.Items[0].Quantity = "Infinity" }, "", "items[0].quantity"},
		{"UnknownType", func(d *ClaimData) { d.ClaimType = "dental-ish" }, "", "claim_type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := sampleClaim()
			tt.mutate(&d)
			_, err := c.BuildClaimBundle(d, "7001071327", "corr")
			require.Error(t, err)

			if tt.missing != "" {
				var missing *MissingRequiredFieldError
				require.True(t, errors.As(err, &missing), err.Error())
				assert.Equal(t, tt.missing, missing.Field)
			}
			if tt.invalid != "" {
				var invalid *InvalidFieldError
				require.True(t, errors.As(err, &invalid), err.Error())
				assert.Equal(t, tt.invalid, invalid.Field)
			}
		})
	}
}

func TestBuildCommunicationBundle(t *testing.T) {
	c := newTestComposer(t)

	in := CommunicationData{
		Patient:         samplePatient(),
		ClaimIdentifier: "claim-123",
		Messages:        []string{"Attached discharge summary", "Lab results follow"},
	}
	b, err := c.BuildCommunicationBundle(in, "7001071327", "corr-c")
	require.NoError(t, err)
	require.NoError(t, ValidateBundle(b))
	require.Len(t, b.Entry, 3)

	comm := b.Entry[1].Resource.(*fhirmodel.Communication)
	assert.Equal(t, "completed", comm.Status)
	assert.Equal(t, "Patient/patient-TEST-MB-001", comm.Subject.Reference)
	assert.Equal(t, "claim-123", comm.About[0].Identifier.Value)
	require.Len(t, comm.Payload, 2)
	assert.Equal(t, "Lab results follow", comm.Payload[1].ContentString)
	assert.Equal(t, eventCommunication, b.Header().EventCoding.Code)

	_, err = c.BuildCommunicationBundle(CommunicationData{Patient: samplePatient(), Messages: []string{"x"}}, "7001071327", "corr")
	var missing *MissingRequiredFieldError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "claim_identifier", missing.Field)

	_, err = c.BuildCommunicationBundle(CommunicationData{Patient: samplePatient(), ClaimIdentifier: "c"}, "7001071327", "corr")
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "messages", missing.Field)
}

func TestBuildCollection(t *testing.T) {
	c := newTestComposer(t)

	p, err := c.BuildPatientResource(samplePatient())
	require.NoError(t, err)
	cov := c.BuildCoverageResource(p.ID, "7001071327", "TEST-MB-001", "POL")

	b := c.BuildCollection(p, cov)
	assert.Equal(t, "collection", b.Type)
	require.Len(t, b.Entry, 2)
	assert.Equal(t, "http://provider.com.sa/Patient/patient-TEST-MB-001", b.Entry[0].FullURL)
	require.NoError(t, ValidateBundle(b))
}

func TestBundleJSONShape(t *testing.T) {
	c := newTestComposer(t)

	b, err := c.BuildEligibilityRequest(samplePatient(), "7001071327", "corr-json")
	require.NoError(t, err)

	raw, err := json.Marshal(b)
	require.NoError(t, err)

	parsed := ParseResponse(raw)
	require.True(t, parsed.Success, parsed.Errors)
	require.Len(t, parsed.Data, 3)
	assert.Equal(t, "MessageHeader", parsed.Data[0]["resourceType"])
	assert.Equal(t, "Patient", parsed.Data[1]["resourceType"])
	assert.Equal(t, "CoverageEligibilityRequest", parsed.Data[2]["resourceType"])

	meta := parsed.Data[2]["meta"].(map[string]any)
	assert.Equal(t, []any{ProfileFor(KindCoverageEligibilityRequest)}, meta["profile"])
}
