package auth

// Permission constants define the available permissions in the system.
// Permissions are granted to users individually; PermSystemAdmin is the
// universal bypass that satisfies every permission check.
const (
	// PermUsersRead allows viewing user accounts.
	PermUsersRead = "users:read"
	// PermUsersWrite allows creating and updating user accounts.
	PermUsersWrite = "users:write"
	// PermUsersDelete allows deleting user accounts.
	PermUsersDelete = "users:delete"

	// PermProductsRead allows viewing the product catalog and instances.
	PermProductsRead = "products:read"
	// PermProductsWrite allows creating and updating products and instances.
	PermProductsWrite = "products:write"
	// PermProductsDelete allows deleting products and instances.
	PermProductsDelete = "products:delete"

	// PermLoansRead allows viewing loans and loan statistics.
	PermLoansRead = "loans:read"
	// PermLoansWrite allows creating, updating, returning and losing loans.
	PermLoansWrite = "loans:write"
	// PermLoansDelete is reserved; loans are never deleted in practice.
	PermLoansDelete = "loans:delete"

	// PermVolunteersRead allows viewing volunteer activities.
	PermVolunteersRead = "volunteers:read"
	// PermVolunteersWrite allows logging and updating volunteer activities.
	PermVolunteersWrite = "volunteers:write"
	// PermVolunteersDelete allows deleting volunteer activities.
	PermVolunteersDelete = "volunteers:delete"

	// PermAuditRead allows reading the audit trail.
	PermAuditRead = "audit:read"

	// PermPermissionsManage allows granting and revoking user permissions.
	PermPermissionsManage = "permissions:manage"

	// PermSystemAdmin is the universal bypass permission.
	PermSystemAdmin = "system:admin"
)

// Catalog lists every seedable permission with its description.
// The daemon upserts these rows on startup.
func Catalog() map[string]string {
	return map[string]string{
		PermUsersRead:         "Read users",
		PermUsersWrite:        "Create and update users",
		PermUsersDelete:       "Delete users",
		PermProductsRead:      "Read products and instances",
		PermProductsWrite:     "Create and update products and instances",
		PermProductsDelete:    "Delete products and instances",
		PermLoansRead:         "Read loans and statistics",
		PermLoansWrite:        "Create, update, return and lose loans",
		PermLoansDelete:       "Delete loans (reserved)",
		PermVolunteersRead:    "Read volunteer activities",
		PermVolunteersWrite:   "Log and update volunteer activities",
		PermVolunteersDelete:  "Delete volunteer activities",
		PermAuditRead:         "Read audit logs",
		PermPermissionsManage: "Manage user permissions",
		PermSystemAdmin:       "Full system access (bypasses all permission checks)",
	}
}
