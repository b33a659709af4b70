package session

// Signal sources. Three independent activity producers feed one rolling idle
// timer: the client-side microphone energy sampler, the chat message counter,
// and the raw interaction listener (mousedown/keydown/touchstart/scroll).
type SignalSource string

const (
	SourceAudio       SignalSource = "audio"
	SourceChat        SignalSource = "chat"
	SourceInteraction SignalSource = "interaction"
)

// Signal is one activity report from a producer.
type Signal struct {
	Source SignalSource

	// Level is the sampled microphone energy (audio source only).
	Level float64

	// Count is the total number of locally sent chat messages (chat source
	// only); an increase over the previous report counts as activity.
	Count int
}

// Inbound message types on the activity channel.
const (
	inboundTypeActivity     = "activity"
	inboundTypeAgentControl = "agent.control"
)

// Agent control actions.
const (
	actionSleep = "sleep"
	actionWake  = "wake"
	actionEnd   = "end"
)

// inboundMessage is the JSON envelope clients send on the activity channel.
type inboundMessage struct {
	Type   string       `json:"type"`
	Source SignalSource `json:"source,omitempty"`
	Level  float64      `json:"level,omitempty"`
	Count  int          `json:"count,omitempty"`
	Action string       `json:"action,omitempty"`
	Reason string       `json:"reason,omitempty"`
}

// Outbound event types on the activity channel.
const (
	eventSessionEnded   = "session.ended"
	eventTrialRemaining = "trial.remaining"
)

// outboundEvent is the JSON envelope the server pushes to clients.
type outboundEvent struct {
	Type             string `json:"type"`
	Reason           string `json:"reason,omitempty"`
	RemainingSeconds *int   `json:"remainingSeconds,omitempty"`
}

// controlMsg carries sleep/wake/end requests into the session run loop.
type controlMsg struct {
	action string
	reason string
}
