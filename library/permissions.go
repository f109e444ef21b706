package library

// Capability is an action the presentation layer may offer to the signed-in account.
type Capability int

const (
	CapBrowseCatalog Capability = iota
	CapManageCatalog
	CapLend
	CapReturn
	CapViewAllLoans
	CapManageAccounts
)

var capabilityNames = map[Capability]string{
	CapBrowseCatalog:  "browse catalog",
	CapManageCatalog:  "manage catalog",
	CapLend:           "lend books",
	CapReturn:         "return books",
	CapViewAllLoans:   "view all loans",
	CapManageAccounts: "manage accounts",
}

func (c Capability) String() string {
	if n, ok := capabilityNames[c]; ok {
		return n
	}
	return "unknown capability"
}

var grants = map[Role][]Capability{
	RoleAdmin:     {CapBrowseCatalog, CapManageCatalog, CapLend, CapReturn, CapViewAllLoans, CapManageAccounts},
	RoleLibrarian: {CapBrowseCatalog, CapManageCatalog, CapLend, CapReturn, CapViewAllLoans},
	RoleMember:    {CapBrowseCatalog, CapManageCatalog, CapViewAllLoans},
}

// Can reports whether role holds capability c. Unknown roles hold nothing.
func Can(role Role, c Capability) bool {
	for _, g := range grants[role] {
		if g == c {
			return true
		}
	}
	return false
}

// RolesWith lists the roles that hold c, in display order.
func RolesWith(c Capability) []Role {
	var out []Role
	for _, r := range Roles {
		if Can(r, c) {
			out = append(out, r)
		}
	}
	return out
}
