// Package gate decides whether a viewer may see a role-restricted view.
package gate

import "github.com/npezzotti/roomrent/internal/types"

const (
	LoginPath      = "/login"
	OwnerLoginPath = "/owner/login"
)

type Outcome int

const (
	Pending Outcome = iota
	Allow
	Redirect
)

func (o Outcome) String() string {
	switch o {
	case Pending:
		return "pending"
	case Allow:
		return "allow"
	default:
		return "redirect"
	}
}

type Decision struct {
	Outcome Outcome
	Target  string
}

func (d Decision) Allowed() bool {
	return d.Outcome == Allow
}

// Policy selects how an owner requirement is enforced.
type Policy int

const (
	// Parity admits any signed-in viewer to owner views. Owner pages then
	// rely on the store's row-level security for what they can load.
	Parity Policy = iota
	// StrictOwner additionally requires the owner role.
	StrictOwner
)

type Gate struct {
	policy Policy
}

func New(policy Policy) *Gate {
	return &Gate{policy: policy}
}

// Decide evaluates the gate for a viewer. A nil user with loading false means
// nobody is signed in. required may be RoleNone.
func (g *Gate) Decide(required types.Role, user *types.User, loading bool) Decision {
	if loading {
		return Decision{Outcome: Pending}
	}

	if user == nil {
		if required == types.RoleOwner {
			return Decision{Outcome: Redirect, Target: OwnerLoginPath}
		}
		return Decision{Outcome: Redirect, Target: LoginPath}
	}

	switch {
	case required == types.RoleNone:
		return Decision{Outcome: Allow}
	case required == types.RoleOwner && g.policy == Parity:
		return Decision{Outcome: Allow}
	case user.Role == required:
		return Decision{Outcome: Allow}
	default:
		return Decision{Outcome: Redirect, Target: LoginPath}
	}
}

// Decide evaluates the gate with the Parity policy.
func Decide(required types.Role, user *types.User, loading bool) Decision {
	return New(Parity).Decide(required, user, loading)
}
