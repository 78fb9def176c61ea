package domain

// Role is the coarse access level the calling layer resolved for a request.
// The engine never authenticates; it only receives the already-established
// identity so the boundary can enforce who may read what.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleSupervisor Role = "supervisor"
	RoleCrew       Role = "crew"
)

// Caller is the explicit caller identity + role every read operation accepts.
type Caller struct {
	ActorID ActorID
	Role    Role
}

// IsAdmin reports whether the caller holds the administrative role.
func (c Caller) IsAdmin() bool { return c.Role == RoleAdmin }

// CanReadTimeline reports whether the caller may read the given actor's
// activity timeline: the owning actor, or an admin.
func (c Caller) CanReadTimeline(owner ActorID) bool {
	return c.IsAdmin() || (c.ActorID != "" && c.ActorID == owner)
}
