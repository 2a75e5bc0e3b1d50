package rbac

// Role is one of the six fixed organizational roles. The set is closed: new
// roles require a registration row and a new constant here.
type Role string

const (
	RoleDirector   Role = "director"
	RoleManager    Role = "manager"
	RoleSupplier   Role = "supplier"
	RoleWarehouse  Role = "warehouse"
	RoleProduction Role = "production"
	RoleAccountant Role = "accountant"
)

// AllRoles lists every registered role.
var AllRoles = []Role{
	RoleDirector,
	RoleManager,
	RoleSupplier,
	RoleWarehouse,
	RoleProduction,
	RoleAccountant,
}

// ParseRole maps a stored role name onto the closed set.
func ParseRole(name string) (Role, bool) {
	for _, r := range AllRoles {
		if string(r) == name {
			return r, true
		}
	}
	return "", false
}

// RoleSet is the set of roles held by a principal.
type RoleSet map[Role]struct{}

// NewRoleSet builds a set from the given roles.
func NewRoleSet(roles ...Role) RoleSet {
	set := make(RoleSet, len(roles))
	for _, r := range roles {
		set[r] = struct{}{}
	}
	return set
}

// Has reports whether the set contains the role.
func (s RoleSet) Has(role Role) bool {
	_, ok := s[role]
	return ok
}

// HasAny reports whether the intersection with required is non-empty.
func (s RoleSet) HasAny(required ...Role) bool {
	for _, r := range required {
		if s.Has(r) {
			return true
		}
	}
	return false
}

// Principal describes the authenticated actor and their role memberships.
type Principal struct {
	UserID   int64
	Username string
	Roles    RoleSet
}

// Authorize answers allow/deny for the required capability set. A principal
// is allowed iff it holds at least one of the required roles. An empty
// requirement means any authenticated principal passes, including one with
// zero roles.
func Authorize(p Principal, required ...Role) bool {
	if len(required) == 0 {
		return true
	}
	return p.Roles.HasAny(required...)
}
