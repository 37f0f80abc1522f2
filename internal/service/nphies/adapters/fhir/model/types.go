package model

import (
	"encoding/json"
)

// Resource is implemented by every FHIR resource kind in this package.
type Resource interface {
	Kind() string
	ResourceID() string
	Profile() string
}

// DomainResource carries the fields every NPHIES resource shares.
type DomainResource struct {
	ResourceType string `json:"resourceType"`
	ID           string `json:"id"`
	Meta         *Meta  `json:"meta,omitempty"`
}

func (r DomainResource) Kind() string       { return r.ResourceType }
func (r DomainResource) ResourceID() string { return r.ID }

// Profile returns the first meta.profile entry, or "".
func (r DomainResource) Profile() string {
	if r.Meta == nil || len(r.Meta.Profile) == 0 {
		return ""
	}
	return r.Meta.Profile[0]
}

// ReferenceTo returns the "<ResourceType>/<id>" lookup key of r.
func ReferenceTo(r Resource) string {
	return r.Kind() + "/" + r.ResourceID()
}

type Meta struct {
	Profile     []string `json:"profile,omitempty"`
	LastUpdated string   `json:"lastUpdated,omitempty"`
}

type Identifier struct {
	Type   *CodeableConcept `json:"type,omitempty"`
	System string           `json:"system"`
	Value  string           `json:"value"`
}

type Coding struct {
	System  string `json:"system,omitempty"`
	Code    string `json:"code"`
	Display string `json:"display,omitempty"`
}

type CodeableConcept struct {
	Coding []Coding `json:"coding,omitempty"`
	Text   string   `json:"text,omitempty"`
}

// Reference links two resources in the same bundle; it never owns its target.
type Reference struct {
	Reference  string      `json:"reference,omitempty"`
	Type       string      `json:"type,omitempty"`
	Identifier *Identifier `json:"identifier,omitempty"`
	Display    string      `json:"display,omitempty"`
}

type HumanName struct {
	Use    string   `json:"use,omitempty"`
	Text   string   `json:"text"`
	Family string   `json:"family"`
	Given  []string `json:"given"`
}

type Period struct {
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
}

// Money keeps its value as a decimal literal so amounts never pass through float64.
type Money struct {
	Value    json.Number `json:"value"`
	Currency string      `json:"currency"`
}

type Quantity struct {
	Value json.Number `json:"value"`
}

func Code(system, code, display string) CodeableConcept {
	return CodeableConcept{Coding: []Coding{{System: system, Code: code, Display: display}}}
}
