package transport

// Wire header names
const (
	HeaderQualifier     = "qualifier"
	HeaderCorrelationID = "correlationId"
)

// Message is a transport-level message: an opaque payload plus headers.
// The qualifier header discriminates the payload variant; the correlation
// id ties responses to requests.
type Message struct {
	Qualifier     string `json:"qualifier"`
	CorrelationID string `json:"correlation_id,omitempty"`
	Data          []byte `json:"data,omitempty"`
}

// Headers returns the message headers as a map, the wire-visible form
func (m Message) Headers() map[string]string {
	headers := map[string]string{HeaderQualifier: m.Qualifier}
	if m.CorrelationID != "" {
		headers[HeaderCorrelationID] = m.CorrelationID
	}
	return headers
}

// IncomingMessage is a received message together with its sender
type IncomingMessage struct {
	From    Endpoint
	Message Message
}

// envelope is the wire frame: sender identity, headers and payload
type envelope struct {
	From    Endpoint          `json:"from"`
	Headers map[string]string `json:"headers"`
	Data    []byte            `json:"data,omitempty"`
}
