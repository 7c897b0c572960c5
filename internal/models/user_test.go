package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("password123")
	require.NoError(t, err)
	assert.NotEqual(t, "password123", hash)

	user := User{PasswordHash: hash}
	assert.True(t, user.CheckPassword("password123"))
	assert.False(t, user.CheckPassword("password124"))
	assert.False(t, user.CheckPassword(""))
}

func TestIsBlocked(t *testing.T) {
	assert.True(t, (&User{Role: RoleBlocked}).IsBlocked())
	assert.False(t, (&User{Role: RoleUser}).IsBlocked())
	assert.False(t, (&User{Role: RoleAdmin}).IsBlocked())
}

func TestValidAction(t *testing.T) {
	for _, action := range []string{
		ActionLogin, ActionLogout, ActionFileUpload, ActionFileDelete,
		ActionProfileUpdate, ActionPasswordChange, ActionAdminAction,
	} {
		assert.True(t, ValidAction(action), action)
	}
	assert.False(t, ValidAction("made_up_action"))
	assert.False(t, ValidAction(""))
}
