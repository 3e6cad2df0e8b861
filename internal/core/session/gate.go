package session

import (
	"slices"
	"sync"

	"github.com/brewline/console/internal/core/domain"
	"github.com/brewline/console/internal/core/ports"
)

// Decision is the Gate's verdict for the current session state.
type Decision int

const (
	// DecisionPending: the session has not been restored yet; render nothing.
	DecisionPending Decision = iota
	DecisionRender
	DecisionRedirectLogin
	DecisionRedirectHome
)

func (d Decision) String() string {
	switch d {
	case DecisionRender:
		return "render"
	case DecisionRedirectLogin:
		return "redirect_login"
	case DecisionRedirectHome:
		return "redirect_home"
	default:
		return "pending"
	}
}

// Target returns the route a redirect decision navigates to, or "".
func (d Decision) Target() string {
	switch d {
	case DecisionRedirectLogin:
		return domain.LoginPath
	case DecisionRedirectHome:
		return domain.DashboardPath
	default:
		return ""
	}
}

// Decide evaluates one session state against the required roles.
func Decide(s domain.Session, required []domain.Role) Decision {
	switch {
	case !s.IsInitialized:
		return DecisionPending
	case s.User == nil:
		return DecisionRedirectLogin
	case !slices.Contains(required, s.User.Role):
		return DecisionRedirectHome
	default:
		return DecisionRender
	}
}

// Gate keeps a role-restricted view admitted only while the session allows
// it. It re-evaluates on every Store emission and navigates once each time
// the decision turns into a redirect.
type Gate struct {
	required []domain.Role
	nav      ports.Navigator

	mu          sync.Mutex
	decision    Decision
	revision    uint64
	closed      bool
	unsubscribe func()
}

// NewGate subscribes to store and evaluates its current state immediately.
// States older than one already observed are ignored, so the initial snapshot
// never overrides an emission that raced ahead of it.
func NewGate(store *Store, nav ports.Navigator, required ...domain.Role) *Gate {
	g := &Gate{
		required: slices.Clone(required),
		nav:      nav,
		decision: DecisionPending,
	}
	g.unsubscribe = store.Subscribe(g.observe)
	g.observe(store.Snapshot())
	return g
}

// Decision returns the latest verdict.
func (g *Gate) Decision() Decision {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.decision
}

// Allowed reports whether the restricted view may render.
func (g *Gate) Allowed() bool {
	return g.Decision() == DecisionRender
}

// Close stops reacting to the Store.
func (g *Gate) Close() {
	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()
	g.unsubscribe()
}

func (g *Gate) observe(s domain.Session) {
	next := Decide(s, g.required)

	g.mu.Lock()
	if g.closed || s.Revision < g.revision {
		g.mu.Unlock()
		return
	}
	g.revision = s.Revision
	changed := next != g.decision
	g.decision = next
	g.mu.Unlock()

	if changed && next.Target() != "" && g.nav != nil {
		g.nav.Navigate(next.Target())
	}
}
