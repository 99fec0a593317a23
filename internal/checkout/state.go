package checkout

// State names one stage of an in-flight payment attempt. Exactly one
// attempt can be in a non-idle state per session at a time.
type State string

const (
	// StateIdle means no attempt is running for the session.
	StateIdle State = "IDLE"
	// StateSubmitting covers input validation and, for cards, requesting
	// the authorization handle from the gateway.
	StateSubmitting State = "SUBMITTING"
	// StateAwaitingGatewayConfirmation covers the card confirmation
	// round-trip. Bounded by the configured confirmation timeout.
	StateAwaitingGatewayConfirmation State = "AWAITING_GATEWAY_CONFIRMATION"
	// StateFinalizing covers the order-creation call.
	StateFinalizing State = "FINALIZING"
	// StateCompleted is terminal: the order was recorded and the session's
	// draft and cart have been cleared.
	StateCompleted State = "COMPLETED"
	// StateFailed is terminal for the attempt; a fresh submission may
	// start immediately. The draft and cart are preserved.
	StateFailed State = "FAILED"
)

// Terminal reports whether the state ends an attempt.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

func (s State) String() string { return string(s) }
