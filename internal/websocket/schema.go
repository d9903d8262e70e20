package websocket

// Actions (client to server).

type Action string

const (
	ActionPing      Action = "ping"
	ActionViolation Action = "violation"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// ViolationRequest reports one proctoring event from the exam client, e.g.
// a tab switch, a fullscreen exit, or a webcam drop.
type ViolationRequest struct {
	Action Action `json:"action"`
	Kind   string `json:"kind"`
	Detail string `json:"detail,omitempty"`
}

// Events (server to client).

type Event string

const (
	EventError      Event = "error"
	EventPong       Event = "pong"
	EventWarning    Event = "warning"
	EventTerminated Event = "terminated"
)

// WarningResponse acknowledges a violation below the termination threshold.
type WarningResponse struct {
	Event      Event `json:"event"`
	Violations int   `json:"violations"`
	Remaining  int   `json:"remaining"`
}

// TerminatedResponse tells the client its session is over.
type TerminatedResponse struct {
	Event      Event  `json:"event"`
	Violations int    `json:"violations"`
	Reason     string `json:"reason"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
