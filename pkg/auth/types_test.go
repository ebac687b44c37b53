package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeRole(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Role
	}{
		{name: "empty defaults to basicuser", raw: "", want: RoleBasicUser},
		{name: "whitespace defaults to basicuser", raw: "   ", want: RoleBasicUser},
		{name: "padded mixed case admin", raw: " Admin ", want: RoleAdmin},
		{name: "upper case basicuser", raw: "BASICUSER", want: RoleBasicUser},
		{name: "unknown role kept lower case", raw: "Owner", want: Role("owner")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeRole(tt.raw))
		})
	}
}

func TestNormalizeStatus(t *testing.T) {
	assert.Equal(t, StatusActive, NormalizeStatus(""))
	assert.Equal(t, StatusDeactivated, NormalizeStatus(" Deactivated\t"))
	assert.Equal(t, Status("paused"), NormalizeStatus("PAUSED"))
}

func TestRoleAndStatusValid(t *testing.T) {
	assert.True(t, RoleAdmin.Valid())
	assert.True(t, RoleBasicUser.Valid())
	assert.False(t, Role("Admin").Valid())
	assert.False(t, Role("").Valid())

	assert.True(t, StatusActive.Valid())
	assert.True(t, StatusDeactivated.Valid())
	assert.False(t, Status("suspended").Valid())
}

func TestAccount_IsActive(t *testing.T) {
	assert.True(t, (&Account{Status: StatusActive}).IsActive())
	assert.True(t, (&Account{Status: " ACTIVE "}).IsActive())
	assert.False(t, (&Account{Status: StatusDeactivated}).IsActive())
}

func TestSession_Expired(t *testing.T) {
	now := time.Now()

	assert.False(t, (&Session{}).Expired(now), "zero expiry never expires")
	assert.False(t, (&Session{ExpiresAt: now.Add(time.Minute)}).Expired(now))
	assert.True(t, (&Session{ExpiresAt: now.Add(-time.Minute)}).Expired(now))
}

func TestSession_Refresh(t *testing.T) {
	s := &Session{Name: "old", Email: "old@x.com", Role: RoleAdmin, Status: StatusActive}
	s.Refresh(&Account{Name: "new", Email: "new@x.com", Role: RoleBasicUser, Status: StatusDeactivated})

	assert.Equal(t, "new", s.Name)
	assert.Equal(t, "new@x.com", s.Email)
	assert.Equal(t, RoleAdmin, s.Role, "role stays a login-time snapshot")
	assert.Equal(t, StatusActive, s.Status, "status stays a login-time snapshot")
}

func TestDestinationFor(t *testing.T) {
	assert.Equal(t, DestinationAdmin, DestinationFor(RoleAdmin))
	assert.Equal(t, DestinationAdmin, DestinationFor(Role(" ADMIN ")))
	assert.Equal(t, DestinationStandard, DestinationFor(RoleBasicUser))
	assert.Equal(t, DestinationStandard, DestinationFor(Role("")))
	assert.Equal(t, DestinationStandard, DestinationFor(Role("owner")))
}
