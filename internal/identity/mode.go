package identity

// AuthMode is the two-state mode of the account view: either logging into
// an existing account or registering a new one. The mode only ever changes
// through Toggle, never through a free-floating flag.
type AuthMode int

const (
	ModeLogin AuthMode = iota
	ModeRegister
)

// Toggle is the single transition between the two modes.
func (m AuthMode) Toggle() AuthMode {
	if m == ModeLogin {
		return ModeRegister
	}
	return ModeLogin
}

func (m AuthMode) String() string {
	if m == ModeRegister {
		return "register"
	}
	return "login"
}
