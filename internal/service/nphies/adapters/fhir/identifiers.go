package fhir

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// namespaceBusiness scopes business identifiers so they never collide with
// other UUIDv5 namespaces.
var namespaceBusiness = uuid.MustParse("5f2c1b0e-6a8d-4f57-9b1e-2d7c4e0a9f31")

// NewMessageID returns a random id for things that exist only for one send:
// bundle ids, MessageHeader ids. Never use it for anything a retry must reproduce.
func NewMessageID() string {
	return uuid.New().String()
}

// BusinessID derives a stable id from the correlation id and the payload
// fields that identify the logical request. Equal inputs give equal ids on
// every call, which lets a caller retry without creating a second record at
// the payer. Each part is length-prefixed, so no field value can shift into
// its neighbour.
func BusinessID(kind, correlationID string, fields ...string) string {
	var b strings.Builder
	for _, p := range append([]string{kind, correlationID}, fields...) {
		fmt.Fprintf(&b, "%d:%s", len(p), p)
	}
	return uuid.NewSHA1(namespaceBusiness, []byte(b.String())).String()
}
