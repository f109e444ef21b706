package library

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCan(t *testing.T) {
	all := []Capability{CapBrowseCatalog, CapManageCatalog, CapLend, CapReturn, CapViewAllLoans, CapManageAccounts}
	want := map[Role]map[Capability]bool{
		RoleAdmin:     {CapBrowseCatalog: true, CapManageCatalog: true, CapLend: true, CapReturn: true, CapViewAllLoans: true, CapManageAccounts: true},
		RoleLibrarian: {CapBrowseCatalog: true, CapManageCatalog: true, CapLend: true, CapReturn: true, CapViewAllLoans: true},
		RoleMember:    {CapBrowseCatalog: true, CapManageCatalog: true, CapViewAllLoans: true},
		Role("guest"): {},
	}
	for role, caps := range want {
		for _, c := range all {
			assert.Equal(t, caps[c], Can(role, c), "%s / %s", role, c)
		}
	}
}

func TestRolesWith(t *testing.T) {
	assert.Equal(t, []Role{RoleAdmin}, RolesWith(CapManageAccounts))
	assert.Equal(t, []Role{RoleAdmin, RoleLibrarian}, RolesWith(CapLend))
	assert.Equal(t, []Role{RoleAdmin, RoleLibrarian}, RolesWith(CapReturn))
	assert.Equal(t, Roles, RolesWith(CapBrowseCatalog))
	assert.Equal(t, Roles, RolesWith(CapManageCatalog))
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole(" Member ")
	assert.NoError(t, err)
	assert.Equal(t, RoleMember, r)

	_, err = ParseRole("owner")
	assert.ErrorIs(t, err, ErrValidation)
}
