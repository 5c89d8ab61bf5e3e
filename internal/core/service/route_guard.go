package service

// Paths the guard redirects to.
const (
	LoginPath          = "/login"
	DefaultLandingPath = "/products"
)

// GuardOutcome is what a protected route should do with a request.
type GuardOutcome int

const (
	GuardLoading GuardOutcome = iota
	GuardRedirectLogin
	GuardRedirectLanding
	GuardAllow
)

func (o GuardOutcome) String() string {
	switch o {
	case GuardLoading:
		return "loading"
	case GuardRedirectLogin:
		return "redirect_login"
	case GuardRedirectLanding:
		return "redirect_landing"
	case GuardAllow:
		return "allow"
	default:
		return "unknown"
	}
}

// GuardDecision carries the outcome and, for redirects, the target path.
type GuardDecision struct {
	Outcome    GuardOutcome
	RedirectTo string
}

// EvaluateGuard decides how to treat a protected route. Loading is checked
// first: deciding on authorization before the profile resolves would send
// managers away during the initial fetch.
func EvaluateGuard(s Snapshot, requiresManager bool) GuardDecision {
	switch {
	case s.Loading:
		return GuardDecision{Outcome: GuardLoading}
	case s.User() == nil:
		return GuardDecision{Outcome: GuardRedirectLogin, RedirectTo: LoginPath}
	case requiresManager && !s.IsManager():
		return GuardDecision{Outcome: GuardRedirectLanding, RedirectTo: DefaultLandingPath}
	default:
		return GuardDecision{Outcome: GuardAllow}
	}
}
