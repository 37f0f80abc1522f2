package fhir

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"

	fhirmodel "github.com/rcm-ksa/nphies-gateway/internal/service/nphies/adapters/fhir/model"
	"github.com/rcm-ksa/nphies-gateway/internal/service/nphies/payers"
)

const (
	dateLayout             = "2006-01-02"
	defaultProviderBaseURL = "http://provider.com.sa"
	defaultClaimType       = "institutional"
)

var claimTypes = map[string]string{
	"institutional": "Institutional",
	"professional":  "Professional",
	"pharmacy":      "Pharmacy",
	"oral":          "Oral",
	"vision":        "Vision",
}

// money rounds every amount to halalas (2 places).
var money = func() *apd.Context {
	c := apd.BaseContext.WithPrecision(34)
	c.Rounding = apd.RoundHalfUp
	return c
}()

type Options struct {
	ProviderLicense string // provider-license identifier value
	ProviderBaseURL string // base of fullUrls and provider identifier systems
	SenderEndpoint  string // MessageHeader.source.endpoint
}

// Composer builds NPHIES resources and message bundles. It holds only
// immutable configuration and is safe for concurrent use.
type Composer struct {
	opt    Options
	payers *payers.Directory
	now    func() time.Time
}

func NewComposer(opt Options, directory *payers.Directory) *Composer {
	opt.ProviderBaseURL = strings.TrimRight(defaultIfEmpty(opt.ProviderBaseURL, defaultProviderBaseURL), "/")
	opt.SenderEndpoint = defaultIfEmpty(opt.SenderEndpoint, opt.ProviderBaseURL)
	return &Composer{
		opt:    opt,
		payers: directory,
		now:    time.Now,
	}
}

// WithClock returns a copy of c that reads time from now.
func (c *Composer) WithClock(now func() time.Time) *Composer {
	cp := *c
	cp.now = now
	return &cp
}

// PatientID is the deterministic Patient.id for a member.
func PatientID(memberID string) string { return "patient-" + memberID }

func CoverageID(memberID string) string { return "coverage-" + memberID }

// BuildPatientResource maps a patient record onto the NPHIES Patient profile.
// Only member_id is required; every other field falls back to "".
func (c *Composer) BuildPatientResource(p PatientData) (*fhirmodel.Patient, error) {
	if strings.TrimSpace(p.MemberID) == "" {
		return nil, &MissingRequiredFieldError{Resource: KindPatient, Field: "member_id"}
	}

	return &fhirmodel.Patient{
		DomainResource: resource(KindPatient, PatientID(p.MemberID)),
		Identifier: []fhirmodel.Identifier{
			{
				Type:   identifierType("MB", "Member Number"),
				System: sysMemberID,
				Value:  p.MemberID,
			},
			{
				Type:   identifierType("NI", "National unique individual identifier"),
				System: sysNationalID,
				Value:  p.NationalID,
			},
		},
		Active: true,
		Name: []fhirmodel.HumanName{{
			Use:    "official",
			Text:   strings.TrimSpace(p.GivenName + " " + p.FamilyName),
			Family: p.FamilyName,
			Given:  []string{p.GivenName},
		}},
		Gender:    p.Gender,
		BirthDate: p.BirthDate,
	}, nil
}

func (c *Composer) BuildCoverageResource(patientID, payerCode, memberID, policyNumber string) *fhirmodel.Coverage {
	patient := fhirmodel.Reference{Reference: KindPatient + "/" + patientID}
	relationship := fhirmodel.Code(csSubscriberRel, "self", "Self")
	coverageType := fhirmodel.Code(csCoverageType, "EHCPOL", "extended healthcare")

	return &fhirmodel.Coverage{
		DomainResource: resource(KindCoverage, CoverageID(memberID)),
		Identifier: []fhirmodel.Identifier{
			{System: sysPolicyNumber, Value: policyNumber},
		},
		Status:       "active",
		Type:         &coverageType,
		Subscriber:   patient,
		SubscriberID: memberID,
		Beneficiary:  patient,
		Relationship: &relationship,
		Payor:        []fhirmodel.Reference{c.insurer(payerCode)},
	}
}

// BuildEligibilityRequest assembles the 3-entry eligibility message:
// MessageHeader, Patient, CoverageEligibilityRequest.
func (c *Composer) BuildEligibilityRequest(p PatientData, payerCode, correlationID string) (*fhirmodel.Bundle, error) {
	patient, err := c.BuildPatientResource(p)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(payerCode) == "" {
		return nil, &MissingRequiredFieldError{Resource: KindCoverageEligibilityRequest, Field: "payer_code"}
	}

	now := c.now().UTC()
	id := BusinessID(KindCoverageEligibilityRequest, correlationID, payerCode, p.MemberID, p.NationalID)
	priority := fhirmodel.Code(csProcessPrio, "normal", "")

	req := &fhirmodel.CoverageEligibilityRequest{
		DomainResource: resource(KindCoverageEligibilityRequest, id),
		Identifier: []fhirmodel.Identifier{
			{System: c.opt.ProviderBaseURL + pathEligibilityRequest, Value: id},
		},
		Status:       "active",
		Priority:     &priority,
		Purpose:      []string{"benefits", "validation"},
		Patient:      fhirmodel.Reference{Reference: fhirmodel.ReferenceTo(patient)},
		ServicedDate: now.Format(dateLayout),
		Created:      now.Format(time.RFC3339),
		Provider:     c.provider(),
		Insurer:      c.insurer(payerCode),
	}

	reqURL := c.fullURL(req)
	header := c.messageHeader(eventEligibility, payerCode, reqURL)

	return c.message(now,
		entry(urn(header.ID), header),
		entry(c.fullURL(patient), patient),
		entry(reqURL, req),
	), nil
}

// BuildClaimBundle assembles a claim message: MessageHeader, Claim, Patient,
// Coverage. Claim.total is the sum of the item nets, in SAR.
func (c *Composer) BuildClaimBundle(claim ClaimData, payerCode, correlationID string) (*fhirmodel.Bundle, error) {
	patient, err := c.BuildPatientResource(claim.Patient)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(payerCode) == "" {
		return nil, &MissingRequiredFieldError{Resource: KindClaim, Field: "payer_code"}
	}
	if len(claim.Items) == 0 {
		return nil, &MissingRequiredFieldError{Resource: KindClaim, Field: "items"}
	}

	claimType := strings.ToLower(defaultIfEmpty(claim.ClaimType, defaultClaimType))
	typeDisplay, ok := claimTypes[claimType]
	if !ok {
		return nil, &InvalidFieldError{Field: "claim_type", Value: claim.ClaimType, Reason: "unknown claim type"}
	}

	items, total, err := claimItems(claim.Items)
	if err != nil {
		return nil, err
	}

	coverage := c.BuildCoverageResource(patient.ID, payerCode, claim.Patient.MemberID, claim.PolicyNumber)

	fields := []string{payerCode, claim.Patient.MemberID, claim.PolicyNumber, claimType}
	for _, it := range items {
		fields = append(fields, it.ProductOrService.Coding[0].Code, string(it.Quantity.Value), string(it.UnitPrice.Value), it.ServicedDate)
	}
	id := BusinessID(KindClaim, correlationID, fields...)
	now := c.now().UTC()

	res := &fhirmodel.Claim{
		DomainResource: resource(KindClaim, id),
		Identifier: []fhirmodel.Identifier{
			{System: c.opt.ProviderBaseURL + pathClaim, Value: id},
		},
		Status:   "active",
		Type:     fhirmodel.Code(csClaimType, claimType, typeDisplay),
		Use:      "claim",
		Patient:  fhirmodel.Reference{Reference: fhirmodel.ReferenceTo(patient)},
		Created:  now.Format(time.RFC3339),
		Insurer:  c.insurer(payerCode),
		Provider: c.provider(),
		Priority: fhirmodel.Code(csProcessPrio, "normal", ""),
		Insurance: []fhirmodel.ClaimInsurance{
			{Sequence: 1, Focal: true, Coverage: fhirmodel.Reference{Reference: fhirmodel.ReferenceTo(coverage)}},
		},
		Item:  items,
		Total: fhirmodel.Money{Value: total, Currency: currencySAR},
	}

	claimURL := c.fullURL(res)
	header := c.messageHeader(eventClaim, payerCode, claimURL)

	return c.message(now,
		entry(urn(header.ID), header),
		entry(claimURL, res),
		entry(c.fullURL(patient), patient),
		entry(c.fullURL(coverage), coverage),
	), nil
}

// BuildCommunicationBundle assembles a communication message about an
// earlier claim: MessageHeader, Communication, Patient.
func (c *Composer) BuildCommunicationBundle(comm CommunicationData, payerCode, correlationID string) (*fhirmodel.Bundle, error) {
	patient, err := c.BuildPatientResource(comm.Patient)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(payerCode) == "" {
		return nil, &MissingRequiredFieldError{Resource: KindCommunication, Field: "payer_code"}
	}
	if strings.TrimSpace(comm.ClaimIdentifier) == "" {
		return nil, &MissingRequiredFieldError{Resource: KindCommunication, Field: "claim_identifier"}
	}
	if len(comm.Messages) == 0 {
		return nil, &MissingRequiredFieldError{Resource: KindCommunication, Field: "messages"}
	}

	now := c.now().UTC()
	id := BusinessID(KindCommunication, correlationID,
		payerCode, comm.Patient.MemberID, comm.ClaimIdentifier, strings.Join(comm.Messages, "\n"))

	payload := make([]fhirmodel.CommunicationPayload, 0, len(comm.Messages))
	for _, m := range comm.Messages {
		payload = append(payload, fhirmodel.CommunicationPayload{ContentString: m})
	}

	res := &fhirmodel.Communication{
		DomainResource: resource(KindCommunication, id),
		Identifier: []fhirmodel.Identifier{
			{System: c.opt.ProviderBaseURL + pathCommunication, Value: id},
		},
		Status:   "completed",
		Category: []fhirmodel.CodeableConcept{fhirmodel.Code(csCommCategory, "instruction", "")},
		Priority: "routine",
		Subject:  fhirmodel.Reference{Reference: fhirmodel.ReferenceTo(patient)},
		About: []fhirmodel.Reference{{
			Type:       KindClaim,
			Identifier: &fhirmodel.Identifier{System: c.opt.ProviderBaseURL + pathClaim, Value: comm.ClaimIdentifier},
		}},
		Sent:      now.Format(time.RFC3339),
		Recipient: []fhirmodel.Reference{c.insurer(payerCode)},
		Sender:    c.provider(),
		Payload:   payload,
	}

	commURL := c.fullURL(res)
	header := c.messageHeader(eventCommunication, payerCode, commURL)

	return c.message(now,
		entry(urn(header.ID), header),
		entry(commURL, res),
		entry(c.fullURL(patient), patient),
	), nil
}

// BuildCollection wraps already-built resources in a collection bundle.
func (c *Composer) BuildCollection(resources ...fhirmodel.Resource) *fhirmodel.Bundle {
	b := &fhirmodel.Bundle{
		DomainResource: resource(KindBundle, NewMessageID()),
		Type:           fhirmodel.BundleTypeCollection,
		Timestamp:      c.now().UTC().Format(time.RFC3339),
		Entry:          make([]fhirmodel.BundleEntry, 0, len(resources)),
	}
	for _, r := range resources {
		b.Entry = append(b.Entry, entry(c.fullURL(r), r))
	}
	return b
}

// ==============================
// Mapping helpers
// ==============================

func (c *Composer) message(now time.Time, entries ...fhirmodel.BundleEntry) *fhirmodel.Bundle {
	return &fhirmodel.Bundle{
		DomainResource: resource(KindBundle, NewMessageID()),
		Type:           fhirmodel.BundleTypeMessage,
		Timestamp:      now.Format(time.RFC3339),
		Entry:          entries,
	}
}

func (c *Composer) messageHeader(event, payerCode, focusURL string) *fhirmodel.MessageHeader {
	return &fhirmodel.MessageHeader{
		DomainResource: resource(KindMessageHeader, NewMessageID()),
		EventCoding:    fhirmodel.Coding{System: csMessageEvents, Code: event},
		Destination: []fhirmodel.MessageDestination{{
			Endpoint: nphiesEndpoint + payerCode,
			Receiver: c.insurer(payerCode),
		}},
		Sender: c.provider(),
		Source: fhirmodel.MessageSource{Endpoint: c.opt.SenderEndpoint},
		Focus:  []fhirmodel.Reference{{Reference: focusURL}},
	}
}

func (c *Composer) insurer(payerCode string) fhirmodel.Reference {
	return fhirmodel.Reference{
		Type:       "Organization",
		Identifier: &fhirmodel.Identifier{System: sysPayerLicense, Value: payerCode},
		Display:    c.payers.Name(payerCode),
	}
}

func (c *Composer) provider() fhirmodel.Reference {
	return fhirmodel.Reference{
		Type:       "Organization",
		Identifier: &fhirmodel.Identifier{System: sysProviderLicense, Value: c.opt.ProviderLicense},
	}
}

func (c *Composer) fullURL(r fhirmodel.Resource) string {
	return c.opt.ProviderBaseURL + "/" + fhirmodel.ReferenceTo(r)
}

func claimItems(in []ServiceItem) ([]fhirmodel.ClaimItem, json.Number, error) {
	total := new(apd.Decimal)
	out := make([]fhirmodel.ClaimItem, 0, len(in))

	for i, it := range in {
		if strings.TrimSpace(it.Code) == "" {
			return nil, "", &MissingRequiredFieldError{Resource: KindClaim, Field: fmt.Sprintf("items[%d].code", i)}
		}
		qty, err := parseAmount(fmt.Sprintf("items[%d].quantity", i), it.Quantity, "1")
		if err != nil {
			return nil, "", err
		}
		if qty.Sign() <= 0 {
			return nil, "", &InvalidFieldError{Field: fmt.Sprintf("items[%d].quantity", i), Value: qty.String(), Reason: "must be positive"}
		}
		price, err := parseAmount(fmt.Sprintf("items[%d].unit_price", i), it.UnitPrice, "0")
		if err != nil {
			return nil, "", err
		}
		if price.Sign() < 0 {
			return nil, "", &InvalidFieldError{Field: fmt.Sprintf("items[%d].unit_price", i), Value: price.String(), Reason: "must not be negative"}
		}
		if _, err := money.Quantize(price, price, -2); err != nil {
			return nil, "", fmt.Errorf("round unit price: %w", err)
		}

		net := new(apd.Decimal)
		if _, err := money.Mul(net, qty, price); err != nil {
			return nil, "", fmt.Errorf("compute line net: %w", err)
		}
		if _, err := money.Quantize(net, net, -2); err != nil {
			return nil, "", fmt.Errorf("round line net: %w", err)
		}
		if _, err := money.Add(total, total, net); err != nil {
			return nil, "", fmt.Errorf("sum claim total: %w", err)
		}

		out = append(out, fhirmodel.ClaimItem{
			Sequence:         i + 1,
			ProductOrService: fhirmodel.Code(csServices, it.Code, it.Display),
			ServicedDate:     it.ServiceDate,
			Quantity:         fhirmodel.Quantity{Value: json.Number(qty.Text('f'))},
			UnitPrice:        fhirmodel.Money{Value: json.Number(price.Text('f')), Currency: currencySAR},
			Net:              fhirmodel.Money{Value: json.Number(net.Text('f')), Currency: currencySAR},
		})
	}

	if _, err := money.Quantize(total, total, -2); err != nil {
		return nil, "", fmt.Errorf("round claim total: %w", err)
	}
	return out, json.Number(total.Text('f')), nil
}

func parseAmount(field string, v json.Number, def string) (*apd.Decimal, error) {
	s := strings.TrimSpace(string(v))
	if s == "" {
		s = def
	}
	d, _, err := apd.NewFromString(s)
	if err != nil || d.Form != apd.Finite {
		return nil, &InvalidFieldError{Field: field, Value: s, Reason: "not a decimal number"}
	}
	return d, nil
}

func resource(kind, id string) fhirmodel.DomainResource {
	return fhirmodel.DomainResource{
		ResourceType: kind,
		ID:           id,
		Meta:         MetaFor(kind),
	}
}

func entry(fullURL string, res fhirmodel.Resource) fhirmodel.BundleEntry {
	return fhirmodel.BundleEntry{
		FullURL:  fullURL,
		Resource: res,
	}
}

func identifierType(code, display string) *fhirmodel.CodeableConcept {
	cc := fhirmodel.Code(csIdentifierType, code, display)
	return &cc
}

func urn(id string) string { return "urn:uuid:" + id }

func defaultIfEmpty(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
