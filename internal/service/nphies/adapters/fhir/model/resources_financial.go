package model

type CoverageEligibilityRequest struct {
	DomainResource
	Identifier   []Identifier           `json:"identifier"`
	Status       string                 `json:"status"` // active|cancelled|draft|entered-in-error
	Priority     *CodeableConcept       `json:"priority,omitempty"`
	Purpose      []string               `json:"purpose"` // auth-requirements|benefits|discovery|validation
	Patient      Reference              `json:"patient"`
	ServicedDate string                 `json:"servicedDate,omitempty"`
	Created      string                 `json:"created"`
	Provider     Reference              `json:"provider"`
	Insurer      Reference              `json:"insurer"`
	Insurance    []EligibilityInsurance `json:"insurance,omitempty"`
}

type EligibilityInsurance struct {
	Focal    bool      `json:"focal"`
	Coverage Reference `json:"coverage"`
}

type Claim struct {
	DomainResource
	Identifier []Identifier     `json:"identifier"`
	Status     string           `json:"status"`
	Type       CodeableConcept  `json:"type"`
	Use        string           `json:"use"` // claim|preauthorization|predetermination
	Patient    Reference        `json:"patient"`
	Created    string           `json:"created"`
	Insurer    Reference        `json:"insurer"`
	Provider   Reference        `json:"provider"`
	Priority   CodeableConcept  `json:"priority"`
	Insurance  []ClaimInsurance `json:"insurance"`
	Item       []ClaimItem      `json:"item"`
	Total      Money            `json:"total"`
}

type ClaimInsurance struct {
	Sequence int       `json:"sequence"`
	Focal    bool      `json:"focal"`
	Coverage Reference `json:"coverage"`
}

// ClaimItem is one service line; Net is Quantity x UnitPrice.
type ClaimItem struct {
	Sequence         int             `json:"sequence"`
	ProductOrService CodeableConcept `json:"productOrService"`
	ServicedDate     string          `json:"servicedDate,omitempty"`
	Quantity         Quantity        `json:"quantity"`
	UnitPrice        Money           `json:"unitPrice"`
	Net              Money           `json:"net"`
}
