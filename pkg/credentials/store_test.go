package credentials_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatehouse-id/gatehouse/pkg/credentials"
	"github.com/gatehouse-id/gatehouse/pkg/protocol"
)

func TestStore_VerifyPassword(t *testing.T) {
	store := credentials.NewStore()
	require.NoError(t, store.AddUser("acme", "alice", "user-42", "hunter2"))

	userID, err := store.VerifyPassword(context.Background(), "acme", "alice", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, "user-42", userID)

	_, err = store.VerifyPassword(context.Background(), "acme", "alice", "wrong")
	assert.ErrorIs(t, err, protocol.ErrInvalidCredentials)

	_, err = store.VerifyPassword(context.Background(), "acme", "nobody", "hunter2")
	assert.ErrorIs(t, err, protocol.ErrInvalidCredentials)

	// Same username in another realm is a different user.
	_, err = store.VerifyPassword(context.Background(), "other", "alice", "hunter2")
	assert.ErrorIs(t, err, protocol.ErrInvalidCredentials)
}

func TestStore_VerifyCookie(t *testing.T) {
	store := credentials.NewStore()
	store.AddCookie("acme", "cookie-token", "user-42")

	userID, err := store.VerifyCookie(context.Background(), "acme", "cookie-token")
	require.NoError(t, err)
	assert.Equal(t, "user-42", userID)

	_, err = store.VerifyCookie(context.Background(), "acme", "forged")
	assert.ErrorIs(t, err, protocol.ErrInvalidCredentials)

	_, err = store.VerifyCookie(context.Background(), "other", "cookie-token")
	assert.ErrorIs(t, err, protocol.ErrInvalidCredentials)
}
