package enum

// Staff roles (CHECK constrained in users.role).
const (
	UserRoleOwner   = "OWNER"
	UserRoleManager = "MANAGER"
	UserRoleWaiter  = "WAITER"
)

// StaffRoles lists every role allowed to work tabs.
var StaffRoles = []string{UserRoleOwner, UserRoleManager, UserRoleWaiter}

