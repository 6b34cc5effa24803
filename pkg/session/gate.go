package session

// Route names used by the gate.
const (
	RouteLogin    = "/login"
	RouteRegister = "/register"
)

// Outcome is what the gate lets a navigation do.
type Outcome int

const (
	// ShowLoading renders only the loading placeholder.
	ShowLoading Outcome = iota
	// Allow renders the protected view.
	Allow
	// Redirect sends the operator to Decision.Target.
	Redirect
)

func (o Outcome) String() string {
	switch o {
	case ShowLoading:
		return "loading"
	case Allow:
		return "allow"
	case Redirect:
		return "redirect"
	default:
		return "unknown"
	}
}

// Decision is the gate's answer for one navigation.
type Decision struct {
	Outcome Outcome
	Target  string
}

// Decide applies the access rules: wait while loading, let authenticated
// operators through, otherwise send them to login when an account exists
// and to registration when none does.
func Decide(state State) Decision {
	switch {
	case state.Loading:
		return Decision{Outcome: ShowLoading}
	case state.Authenticated:
		return Decision{Outcome: Allow}
	case state.Registered:
		return Decision{Outcome: Redirect, Target: RouteLogin}
	default:
		return Decision{Outcome: Redirect, Target: RouteRegister}
	}
}

// Gate decides navigations for one Holder.
type Gate struct {
	holder *Holder
}

// NewGate binds a gate to a holder.
func NewGate(holder *Holder) *Gate {
	return &Gate{holder: holder}
}

// Decide evaluates the holder's current flags.
func (g *Gate) Decide() Decision {
	return Decide(g.holder.Snapshot())
}
