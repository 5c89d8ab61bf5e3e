package mongo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/99minutos/inventory-web/internal/core/domain"
)

func TestTokens_IssueAndVerify(t *testing.T) {
	tokens, err := NewTokens("secret", time.Hour)
	require.NoError(t, err)

	token, exp, err := tokens.Issue(domain.User{ID: "u1", Email: "bob@miaoda.com"})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 2*time.Second)

	user, err := tokens.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	assert.Equal(t, "bob@miaoda.com", user.Email)
}

func TestTokens_RejectsOtherSecret(t *testing.T) {
	issuer, _ := NewTokens("one", time.Hour)
	verifier, _ := NewTokens("two", time.Hour)

	token, _, err := issuer.Issue(domain.User{ID: "u1"})
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestTokens_RejectsExpired(t *testing.T) {
	tokens, _ := NewTokens("secret", time.Minute)
	tokens.now = func() time.Time { return time.Now().Add(-time.Hour) }

	token, _, err := tokens.Issue(domain.User{ID: "u1"})
	require.NoError(t, err)

	tokens.now = time.Now
	_, err = tokens.Verify(token)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestTokens_OwnerAcceptsExpired(t *testing.T) {
	tokens, _ := NewTokens("secret", time.Hour)
	token, _, err := tokens.Issue(domain.User{ID: "u1"})
	require.NoError(t, err)

	tokens.now = func() time.Time { return time.Now().Add(61 * time.Minute) }
	_, err = tokens.Verify(token)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	user, err := tokens.Owner(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)

	other, _ := NewTokens("other", time.Hour)
	_, err = other.Owner(token)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestTokens_AuthorizeNeedsSession(t *testing.T) {
	tokens, _ := NewTokens("secret", time.Hour)

	_, err := tokens.authorize(context.Background())
	assert.ErrorIs(t, err, domain.ErrForbidden)

	token, _, _ := tokens.Issue(domain.User{ID: "u1"})
	ctx := domain.ContextWithSession(context.Background(), &domain.Session{AccessToken: token})
	user, err := tokens.authorize(ctx)
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
}

func TestNewTokens_RequiresSecret(t *testing.T) {
	_, err := NewTokens("", time.Hour)
	assert.Error(t, err)
}

func TestPatchDocument(t *testing.T) {
	name, qty := "Bolt", 0
	set := patchDocument(domain.ProductPatch{Name: &name, Quantity: &qty})
	assert.Equal(t, "Bolt", set["name"])
	assert.Equal(t, 0, set["quantity"])
	assert.NotContains(t, set, "price")
}
