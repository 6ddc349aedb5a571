package model

import "errors"

// Common errors used across the application
var (
	// Session errors
	ErrSessionNotFound    = errors.New("session not found")
	ErrInvalidSessionID   = errors.New("invalid session id")
	ErrSessionExists      = errors.New("session id already in use")
	ErrSessionIDExhausted = errors.New("could not allocate a session id")
	ErrSessionFull        = errors.New("session already has 10 players")
	ErrAlreadyStarted     = errors.New("session already started")
	ErrNotStarted         = errors.New("start the game before assigning roles")

	// Player errors
	ErrPlayerNotFound = errors.New("player not found")
	ErrInvalidName    = errors.New("name must be 1-24 characters")
	ErrNameTaken      = errors.New("name already taken")
	ErrMissingToken   = errors.New("missing player token")
	ErrMissingTarget  = errors.New("select a player to view")

	// Role errors
	ErrPlayerCountOutOfRange  = errors.New("need 5-10 players to start")
	ErrUnsupportedPlayerCount = errors.New("this player count is not supported")
	ErrRolesNotAssigned       = errors.New("roles are not assigned yet")

	// Dev tool errors
	ErrDevModeDisabled = errors.New("dev mode is not enabled")
)

// Kind classifies an error for callers that need to react to it
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindInvalidInput
	KindConflict
	KindStateViolation
	KindForbidden
)

var kinds = map[error]Kind{
	ErrSessionNotFound:        KindNotFound,
	ErrPlayerNotFound:         KindNotFound,
	ErrInvalidSessionID:       KindInvalidInput,
	ErrInvalidName:            KindInvalidInput,
	ErrMissingToken:           KindInvalidInput,
	ErrMissingTarget:          KindInvalidInput,
	ErrUnsupportedPlayerCount: KindInvalidInput,
	ErrPlayerCountOutOfRange:  KindInvalidInput,
	ErrRolesNotAssigned:       KindInvalidInput,
	ErrNameTaken:              KindConflict,
	ErrSessionIDExhausted:     KindConflict,
	ErrSessionExists:          KindConflict,
	ErrAlreadyStarted:         KindStateViolation,
	ErrNotStarted:             KindStateViolation,
	ErrSessionFull:            KindStateViolation,
	ErrDevModeDisabled:        KindForbidden,
}

// KindOf returns the kind of the first known error in err's chain
func KindOf(err error) Kind {
	if err == nil {
		return KindInternal
	}
	for sentinel, kind := range kinds {
		if errors.Is(err, sentinel) {
			return kind
		}
	}
	return KindInternal
}

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindInvalidInput:
		return "invalid_input"
	case KindConflict:
		return "conflict"
	case KindStateViolation:
		return "state_violation"
	case KindForbidden:
		return "forbidden"
	default:
		return "internal"
	}
}
