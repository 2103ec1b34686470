package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoleAtLeast(t *testing.T) {
	assert.True(t, RoleAdmin.AtLeast(RoleBasicUser))
	assert.True(t, RoleAdmin.AtLeast(RoleModerator))
	assert.True(t, RoleAdmin.AtLeast(RoleAdmin))

	assert.True(t, RoleModerator.AtLeast(RoleBasicUser))
	assert.True(t, RoleModerator.AtLeast(RoleModerator))
	assert.False(t, RoleModerator.AtLeast(RoleAdmin))

	assert.True(t, RoleBasicUser.AtLeast(RoleBasicUser))
	assert.False(t, RoleBasicUser.AtLeast(RoleModerator))
	assert.False(t, RoleBasicUser.AtLeast(RoleAdmin))
}

func TestRoleValid(t *testing.T) {
	assert.True(t, RoleBasicUser.Valid())
	assert.True(t, RoleModerator.Valid())
	assert.True(t, RoleAdmin.Valid())
	assert.False(t, Role(0).Valid())
	assert.False(t, Role(4).Valid())
}
