// ABOUTME: Wire protocol event types exchanged over the session WebSocket.
// ABOUTME: Defines the four server->client event shapes and their constructors.

package protocol

// Event type constants for WebSocket message types.
const (
	// Server → Client events
	EventTypeStatus      = "status"
	EventTypeError       = "error"
	EventTypeAgentOutput = "agent_output"
	EventTypeMessage     = "message"
)

// Event is a single JSON-framed message sent to clients. The Type field
// selects which of the remaining fields are populated; use the constructors
// below rather than building Events by hand so every shape stays fixed.
type Event struct {
	Type string `json:"type"`

	// Payload carries the text of a status event or the relayed body of a
	// message event. Not omitempty: a relayed empty frame still has a
	// payload field.
	Payload string `json:"payload"`

	// Detail describes an error event.
	Detail string `json:"detail,omitempty"`

	// Agent and Content are set on agent_output events.
	Agent   string `json:"agent,omitempty"`
	Content string `json:"content,omitempty"`

	// From identifies the sending client on message events.
	From string `json:"from,omitempty"`
}

// Status builds a status event with the given payload text.
func Status(payload string) Event {
	return Event{Type: EventTypeStatus, Payload: payload}
}

// Error builds an error event with a human-readable detail.
func Error(detail string) Event {
	return Event{Type: EventTypeError, Detail: detail}
}

// AgentOutput builds an agent_output event attributed to the named agent.
func AgentOutput(agent, content string) Event {
	return Event{Type: EventTypeAgentOutput, Agent: agent, Content: content}
}

// Message builds a message event relaying a client payload verbatim.
func Message(from, payload string) Event {
	return Event{Type: EventTypeMessage, From: from, Payload: payload}
}
