package auth

// RoleGrants maps a role to the permission strings the authorization source
// hands out for it. The DB can override these per role; this is the seed set.
var RoleGrants = map[string][]string{
	"admin": {"*"},
	"manager": {
		"trip:create", "trip:edit", "trip:submit", "trip:publish",
		"trip:archive", "trip:view:internal",
		"booking:approve", "booking:reject", "booking:complete", "booking:view",
		"payment:record", "payment:view",
	},
	"reviewer": {
		"trip:approve", "trip:view:internal",
	},
	"guide": {
		"trip:view:internal", "booking:view",
	},
	"user": {},
}

// GrantsFor returns the seeded grants for a role, empty for unknown roles.
func GrantsFor(role string) []string {
	return RoleGrants[role]
}
