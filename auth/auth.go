// Package auth defines the identity and authorization contracts the engine
// consumes. The engine only ever asks two questions: may this operator touch
// this machine, and does this caller hold a privileged role. User and role
// management live in the host system.
package auth

import "context"

// Role names a permission tier.
type Role string

const (
	// RoleOperator may start, submit, hold, resume, and stop machines.
	RoleOperator Role = "operator"
	// RoleSupervisor may additionally apply and lift major holds.
	RoleSupervisor Role = "supervisor"
	// RoleAdmin holds every permission.
	RoleAdmin Role = "admin"
)

// Identity is the caller's identity as supplied by the host's auth layer.
type Identity struct {
	UserID string `json:"user_id"`
	Name   string `json:"name,omitempty"`
	Roles  []Role `json:"roles,omitempty"`
}

// HasRole reports whether the identity carries the given role. Admin
// satisfies every role check.
func (i Identity) HasRole(r Role) bool {
	for _, have := range i.Roles {
		if have == r || have == RoleAdmin {
			return true
		}
	}
	return false
}

// Authorizer answers machine-access questions for an identity.
type Authorizer interface {
	// CanOperateMachine reports whether the identity has been granted
	// access to the machine. The engine bypasses this check for
	// high-demand jobs.
	CanOperateMachine(ctx context.Context, ident Identity, machineCode string) (bool, error)
}

// Static is an Authorizer backed by a fixed grant table. For dev and tests.
type Static struct {
	// Grants maps user ID to the machine codes they may operate.
	// A nil Grants map denies everyone; see AllowAll for the opposite.
	Grants map[string][]string
	// Open, when true, grants every (user, machine) pair.
	Open bool
}

// AllowAll returns an Authorizer that grants every (user, machine) pair.
func AllowAll() *Static { return &Static{Open: true} }

// CanOperateMachine checks the grant table.
func (s *Static) CanOperateMachine(_ context.Context, ident Identity, machineCode string) (bool, error) {
	if s.Open {
		return true, nil
	}
	for _, code := range s.Grants[ident.UserID] {
		if code == machineCode {
			return true, nil
		}
	}
	return false, nil
}
