package credits

// State is a bootstrap state of the client. Transitions only move forward:
// once READY or AUTH_REQUIRED is reached, the machine stays there until
// logout resets it.
type State int

const (
	StateUninitialized State = iota
	StateModeDetecting
	StateEmbeddedWaiting
	StateCheckingSession
	StateReady
	StateAuthRequired
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateModeDetecting:
		return "mode_detecting"
	case StateEmbeddedWaiting:
		return "embedded_waiting_for_parent"
	case StateCheckingSession:
		return "standalone_checking_session"
	case StateReady:
		return "ready"
	case StateAuthRequired:
		return "auth_required"
	}
	return "unknown"
}

// Mode is how the client talks to the outside world. It is latched during
// Initialize and never changes for the lifetime of the instance.
type Mode string

const (
	// ModeAuto selects embedded when the transport reports a child frame,
	// standalone otherwise.
	ModeAuto       Mode = "auto"
	ModeEmbedded   Mode = "embedded"
	ModeStandalone Mode = "standalone"
)

// Event names emitted on the client's emitter.
const (
	EventReady                = "ready"
	EventAuthRequired         = "authRequired"
	EventBalanceUpdated       = "balanceUpdated"
	EventCreditsSpent         = "creditsSpent"
	EventCreditsAdded         = "creditsAdded"
	EventTokenRefreshed       = "tokenRefreshed"
	EventTokenExpired         = "tokenExpired"
	EventOrganizationSwitched = "organizationSwitched"
	EventPersonasLoaded       = "personasLoaded"
	EventLogout               = "logout"
)
