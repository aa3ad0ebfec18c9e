package rbac

import "strings"

// Role is a staff role. The set is closed; unknown values normalize to RoleNone.
type Role string

const (
	RoleNone       Role = ""
	RoleNew        Role = "new"
	RoleSupport    Role = "support"
	RoleManager    Role = "manager"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "superadmin"
)

// Permission is a named capability gating one admin action or resource
type Permission string

const (
	PermOverviewView  Permission = "overview_view"
	PermUsersView     Permission = "users_view"
	PermUsersEdit     Permission = "users_edit"
	PermCardsView     Permission = "cards_view"
	PermCardsEdit     Permission = "cards_edit"
	PermSchemesView   Permission = "schemes_view"
	PermSchemesEdit   Permission = "schemes_edit"
	PermWinnersView   Permission = "winners_view"
	PermWinnersEdit   Permission = "winners_edit"
	PermReferralsView Permission = "referrals_view"
	PermStaffView     Permission = "staff_view"
	PermStaffEdit     Permission = "staff_edit"
	PermStaffBan      Permission = "staff_ban"
	PermAuditView     Permission = "audit_view"
	PermProfileView   Permission = "profile_view"
	PermProfileEdit   Permission = "profile_edit"
)

// Admin console pages
const (
	PageDashboard = "dashboard"
	PageUsers     = "users"
	PageCards     = "cards"
	PageSchemes   = "schemes"
	PageWinners   = "winners"
	PageReferrals = "referrals"
	PageStaff     = "staff"
	PageAudit     = "audit"
	PageProfile   = "profile"
)

// roleRank is the privilege order used by Outranks. RoleNone is absent and ranks -1.
var roleRank = map[Role]int{
	RoleNew:        0,
	RoleSupport:    1,
	RoleManager:    2,
	RoleAdmin:      3,
	RoleSuperAdmin: 4,
}

var allPermissions = []Permission{
	PermOverviewView,
	PermUsersView, PermUsersEdit,
	PermCardsView, PermCardsEdit,
	PermSchemesView, PermSchemesEdit,
	PermWinnersView, PermWinnersEdit,
	PermReferralsView,
	PermStaffView, PermStaffEdit, PermStaffBan,
	PermAuditView,
	PermProfileView, PermProfileEdit,
}

var supportPermissions = []Permission{
	PermOverviewView,
	PermUsersView,
	PermCardsView,
	PermSchemesView,
	PermWinnersView,
	PermReferralsView,
	PermProfileView, PermProfileEdit,
}

var managerPermissions = append(append([]Permission{}, supportPermissions...),
	PermUsersEdit,
	PermCardsEdit,
	PermSchemesEdit,
	PermWinnersEdit,
	PermStaffView,
)

var adminPermissions = append(append([]Permission{}, managerPermissions...),
	PermStaffEdit,
	PermStaffBan,
	PermAuditView,
)

var rolePermissions = map[Role]map[Permission]struct{}{
	RoleNew:        permissionSet(PermProfileView),
	RoleSupport:    permissionSet(supportPermissions...),
	RoleManager:    permissionSet(managerPermissions...),
	RoleAdmin:      permissionSet(adminPermissions...),
	RoleSuperAdmin: permissionSet(allPermissions...),
}

var rolePages = map[Role][]string{
	RoleNew:        {PageProfile},
	RoleSupport:    {PageDashboard, PageUsers, PageCards, PageSchemes, PageWinners, PageReferrals, PageProfile},
	RoleManager:    {PageDashboard, PageUsers, PageCards, PageSchemes, PageWinners, PageReferrals, PageStaff, PageProfile},
	RoleAdmin:      {PageDashboard, PageUsers, PageCards, PageSchemes, PageWinners, PageReferrals, PageStaff, PageAudit, PageProfile},
	RoleSuperAdmin: {PageDashboard, PageUsers, PageCards, PageSchemes, PageWinners, PageReferrals, PageStaff, PageAudit, PageProfile},
}

func permissionSet(perms ...Permission) map[Permission]struct{} {
	set := make(map[Permission]struct{}, len(perms))
	for _, p := range perms {
		set[p] = struct{}{}
	}
	return set
}

// ParseRole normalizes a stored or claimed role string. Unknown values yield RoleNone.
func ParseRole(s string) Role {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := roleRank[r]; ok {
		return r
	}
	return RoleNone
}

// IsValid reports whether r belongs to the closed role set
func (r Role) IsValid() bool {
	_, ok := roleRank[r]
	return ok
}

// Rank returns the privilege level of r, -1 for RoleNone or unknown roles
func Rank(r Role) int {
	if rank, ok := roleRank[r]; ok {
		return rank
	}
	return -1
}

// Outranks reports whether a is strictly more privileged than b
func Outranks(a, b Role) bool {
	return a.IsValid() && Rank(a) > Rank(b)
}

// RoleGrants reports whether role r carries permission p
func RoleGrants(r Role, p Permission) bool {
	_, ok := rolePermissions[r][p]
	return ok
}

// PermissionsFor returns the permissions of r in catalog order. Never nil.
func PermissionsFor(r Role) []Permission {
	set := rolePermissions[r]
	out := make([]Permission, 0, len(set))
	for _, p := range allPermissions {
		if _, ok := set[p]; ok {
			out = append(out, p)
		}
	}
	return out
}

// PagesFor returns the admin pages reachable by r. Never nil.
func PagesFor(r Role) []string {
	pages := rolePages[r]
	out := make([]string, len(pages))
	copy(out, pages)
	return out
}

// AllRoles returns the roles from least to most privileged
func AllRoles() []Role {
	return []Role{RoleNew, RoleSupport, RoleManager, RoleAdmin, RoleSuperAdmin}
}

// AllPermissions returns the full permission catalog
func AllPermissions() []Permission {
	out := make([]Permission, len(allPermissions))
	copy(out, allPermissions)
	return out
}
