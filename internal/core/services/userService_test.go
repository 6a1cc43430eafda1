package services_test

import (
	"testing"

	"github.com/sm8ta/webike_rental_microservice/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureUserCreatesOnce(t *testing.T) {
	f := newFixture(t)
	claims := &domain.Claims{Subject: "auth0|rider", Nickname: "rider", Email: "rider@example.com", EmailVerified: true}

	first, err := f.users.EnsureUser(f.ctx, claims)
	require.NoError(t, err)
	second, err := f.users.EnsureUser(f.ctx, claims)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, f.store.Len(domain.KindUsers))
	assert.Equal(t, "rider", second.Nickname)
	assert.True(t, second.Verified)
	assert.NotNil(t, second.Rental)
}

func TestEnsureUserRequiresSubject(t *testing.T) {
	f := newFixture(t)

	_, err := f.users.EnsureUser(f.ctx, &domain.Claims{Nickname: "anonymous"})
	assert.ErrorIs(t, err, domain.ErrBadRequest)
	assert.Equal(t, 0, f.store.Len(domain.KindUsers))
}

func TestGetUserByRenterID(t *testing.T) {
	f := newFixture(t)
	rider := f.newUser(t, "auth0|rider")
	f.newUser(t, "auth0|other")

	got, err := f.users.GetUserByRenterID(f.ctx, "auth0|rider")
	require.NoError(t, err)
	assert.Equal(t, rider.ID, got.ID)

	_, err = f.users.GetUserByRenterID(f.ctx, "auth0|nobody")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetUsers(t *testing.T) {
	f := newFixture(t)
	for _, s := range []string{"a", "b", "c"} {
		f.newUser(t, "auth0|"+s)
	}

	page, err := f.users.GetUsers(f.ctx, 2, 0)
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.True(t, page.HasMore)
	assert.Equal(t, "auth0|a", page.Items[0].RenterID)
}
