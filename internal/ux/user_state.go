package ux

// UserMode is how the current user relates to the remote collection.
type UserMode string

const (
	// ModeAnonymous means nothing has happened yet; the key is absent.
	ModeAnonymous UserMode = ""

	// ModeGuest means the user works locally without an identity.
	ModeGuest UserMode = "guest"

	// ModeAuthenticated means an identity is available and records sync.
	ModeAuthenticated UserMode = "authenticated"
)

func (m UserMode) String() string {
	if m == ModeAnonymous {
		return "anonymous"
	}
	return string(m)
}

func (m UserMode) valid() bool {
	switch m {
	case ModeAnonymous, ModeGuest, ModeAuthenticated:
		return true
	}
	return false
}

// Event is something that may move the user mode.
type Event int

const (
	EventLocalSave Event = iota // a record was saved without an identity
	EventSignIn
	EventSignOut
)

// Transition returns the mode after ev, and whether it changed.
func Transition(current UserMode, ev Event) (UserMode, bool) {
	switch ev {
	case EventLocalSave:
		if current == ModeAnonymous {
			return ModeGuest, true
		}
	case EventSignIn:
		if current != ModeAuthenticated {
			return ModeAuthenticated, true
		}
	case EventSignOut:
		if current == ModeAuthenticated {
			return ModeGuest, true
		}
	}
	return current, false
}
