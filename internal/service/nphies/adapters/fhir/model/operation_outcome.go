package model

// OperationOutcome severity levels per FHIR R4.
const (
	IssueSeverityFatal       = "fatal"
	IssueSeverityError       = "error"
	IssueSeverityWarning     = "warning"
	IssueSeverityInformation = "information"
)

// OperationOutcome issue type codes used by this service.
const (
	IssueTypeInvalid    = "invalid"
	IssueTypeRequired   = "required"
	IssueTypeNotFound   = "not-found"
	IssueTypeProcessing = "processing"
	IssueTypeSecurity   = "security"
	IssueTypeTransient  = "transient"
	IssueTypeException  = "exception"
)

type OperationOutcome struct {
	DomainResource
	Issue []OperationOutcomeIssue `json:"issue"`
}

type OperationOutcomeIssue struct {
	Severity    string           `json:"severity"`
	Code        string           `json:"code"`
	Details     *CodeableConcept `json:"details,omitempty"`
	Diagnostics string           `json:"diagnostics,omitempty"`
	Expression  []string         `json:"expression,omitempty"`
}

// OutcomeBuilder assembles an OperationOutcome one issue at a time.
type OutcomeBuilder struct {
	outcome *OperationOutcome
}

func NewOutcomeBuilder() *OutcomeBuilder {
	return &OutcomeBuilder{
		outcome: &OperationOutcome{
			DomainResource: DomainResource{ResourceType: "OperationOutcome"},
			Issue:          []OperationOutcomeIssue{},
		},
	}
}

func (b *OutcomeBuilder) AddIssue(severity, code, text string) *OutcomeBuilder {
	b.outcome.Issue = append(b.outcome.Issue, OperationOutcomeIssue{
		Severity: severity,
		Code:     code,
		Details:  &CodeableConcept{Text: text},
	})
	return b
}

// AddIssueAt adds an issue pointing at the offending element.
func (b *OutcomeBuilder) AddIssueAt(severity, code, text, expression string) *OutcomeBuilder {
	b.outcome.Issue = append(b.outcome.Issue, OperationOutcomeIssue{
		Severity:   severity,
		Code:       code,
		Details:    &CodeableConcept{Text: text},
		Expression: []string{expression},
	})
	return b
}

func (b *OutcomeBuilder) Build() *OperationOutcome {
	return b.outcome
}
