package model

type Patient struct {
	DomainResource
	Identifier []Identifier `json:"identifier"`
	Active     bool         `json:"active"`
	Name       []HumanName  `json:"name"`
	Gender     string       `json:"gender"`
	BirthDate  string       `json:"birthDate"`
}

type Coverage struct {
	DomainResource
	Identifier   []Identifier     `json:"identifier"`
	Status       string           `json:"status"` // active|cancelled|draft|entered-in-error
	Type         *CodeableConcept `json:"type,omitempty"`
	Subscriber   Reference        `json:"subscriber"`
	SubscriberID string           `json:"subscriberId"`
	Beneficiary  Reference        `json:"beneficiary"`
	Relationship *CodeableConcept `json:"relationship,omitempty"`
	Payor        []Reference      `json:"payor"`
}

type Communication struct {
	DomainResource
	Identifier []Identifier           `json:"identifier"`
	Status     string                 `json:"status"`
	Category   []CodeableConcept      `json:"category,omitempty"`
	Priority   string                 `json:"priority,omitempty"`
	Subject    Reference              `json:"subject"`
	About      []Reference            `json:"about,omitempty"`
	Sent       string                 `json:"sent"`
	Recipient  []Reference            `json:"recipient"`
	Sender     Reference              `json:"sender"`
	Payload    []CommunicationPayload `json:"payload"`
}

type CommunicationPayload struct {
	ContentString string `json:"contentString"`
}
