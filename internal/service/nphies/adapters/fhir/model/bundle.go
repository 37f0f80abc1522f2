package model

const (
	BundleTypeMessage    = "message"
	BundleTypeCollection = "collection"
)

type Bundle struct {
	DomainResource
	Type      string        `json:"type"` // "message" or "collection"
	Timestamp string        `json:"timestamp,omitempty"`
	Entry     []BundleEntry `json:"entry"`
}

type BundleEntry struct {
	FullURL  string   `json:"fullUrl,omitempty"`
	Resource Resource `json:"resource"`
}

// Header returns the MessageHeader of a message bundle, or nil when the
// first entry is not one.
func (b *Bundle) Header() *MessageHeader {
	if len(b.Entry) == 0 {
		return nil
	}
	mh, _ := b.Entry[0].Resource.(*MessageHeader)
	return mh
}

// Find returns the first entry resource of the given kind.
func (b *Bundle) Find(kind string) Resource {
	for _, e := range b.Entry {
		if e.Resource != nil && e.Resource.Kind() == kind {
			return e.Resource
		}
	}
	return nil
}
