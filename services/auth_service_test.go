package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yashrajoria/shop-service/repository/memstore"
	"github.com/yashrajoria/shop-service/services"
	"go.uber.org/zap"
)

func newAuth(t *testing.T) (*services.AuthService, *services.TokenService, *memstore.Store) {
	t.Helper()
	tokens, err := services.NewTokenService("test-secret", time.Minute, time.Hour)
	require.NoError(t, err)
	store := memstore.New()
	return services.NewAuthService(store, tokens, zap.NewNop()), tokens, store
}

func TestRegister(t *testing.T) {
	auth, _, _ := newAuth(t)
	ctx := context.Background()

	user, err := auth.Register(ctx, " alice ", "alice@example.com", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.False(t, user.IsStaff)
	assert.NotEqual(t, "correct-horse", user.Password, "password is stored hashed")

	cases := []struct {
		name     string
		username string
		email    string
		password string
		field    string
	}{
		{"duplicate username", "alice", "", "another-pass", "username"},
		{"blank username", "  ", "", "another-pass", "username"},
		{"bad email", "bob", "not-an-email", "another-pass", "email"},
		{"short password", "bob", "", "short", "password"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := auth.Register(ctx, tc.username, tc.email, tc.password)
			var validation *services.ValidationError
			require.ErrorAs(t, err, &validation)
			assert.Equal(t, tc.field, validation.Field)
		})
	}
}

func TestObtainTokens(t *testing.T) {
	auth, tokens, _ := newAuth(t)
	ctx := context.Background()
	user, err := auth.Register(ctx, "alice", "", "correct-horse")
	require.NoError(t, err)

	pair, err := auth.ObtainTokens(ctx, "alice", "correct-horse")
	require.NoError(t, err)
	id, err := tokens.Authenticate(pair.Access)
	require.NoError(t, err)
	assert.Equal(t, user.ID, id.UserID)

	for _, creds := range [][2]string{{"alice", "wrong-horse"}, {"nobody", "correct-horse"}} {
		_, err := auth.ObtainTokens(ctx, creds[0], creds[1])
		var authErr *services.AuthError
		require.ErrorAs(t, err, &authErr)
		assert.Equal(t, "No active account found with the given credentials", authErr.Message)
	}
}

func TestRefreshAndVerify(t *testing.T) {
	auth, _, _ := newAuth(t)
	ctx := context.Background()
	_, err := auth.Register(ctx, "alice", "", "correct-horse")
	require.NoError(t, err)
	pair, err := auth.ObtainTokens(ctx, "alice", "correct-horse")
	require.NoError(t, err)

	access, err := auth.Refresh(pair.Refresh)
	require.NoError(t, err)
	assert.NotEmpty(t, access)

	var authErr *services.AuthError
	_, err = auth.Refresh(pair.Access)
	require.ErrorAs(t, err, &authErr, "an access token cannot refresh")

	assert.NoError(t, auth.Verify(pair.Access))
	assert.NoError(t, auth.Verify(pair.Refresh))
	assert.ErrorAs(t, auth.Verify("garbage"), &authErr)
}

func TestEnsureAdmin(t *testing.T) {
	auth, _, store := newAuth(t)
	ctx := context.Background()

	require.NoError(t, auth.EnsureAdmin(ctx, "admin", "admin-password"))
	require.NoError(t, auth.EnsureAdmin(ctx, "admin", "ignored-password"))

	admin, err := store.Users().FindByUsername(ctx, "admin")
	require.NoError(t, err)
	assert.True(t, admin.IsStaff)

	_, err = auth.ObtainTokens(ctx, "admin", "admin-password")
	assert.NoError(t, err, "second call keeps the original password")
}
