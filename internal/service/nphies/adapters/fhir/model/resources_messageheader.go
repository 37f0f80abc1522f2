package model

type MessageHeader struct {
	DomainResource
	EventCoding Coding               `json:"eventCoding"`
	Destination []MessageDestination `json:"destination"`
	Sender      Reference            `json:"sender"`
	Source      MessageSource        `json:"source"`
	Focus       []Reference          `json:"focus"`
}

type MessageDestination struct {
	Endpoint string    `json:"endpoint"`
	Receiver Reference `json:"receiver"`
}

type MessageSource struct {
	Endpoint string `json:"endpoint"`
}
