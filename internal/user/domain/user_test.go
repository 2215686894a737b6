package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/divverma2003/convo-app/internal/directory"
	"github.com/divverma2003/convo-app/pkg/pubsub"
)

func TestFromIdentity(t *testing.T) {
	u, err := FromIdentity(pubsub.UserPayload{
		ID:             "user_1",
		FirstName:      "Ada",
		LastName:       " Lovelace ",
		ImageURL:       "https://img.test/ada.png",
		EmailAddresses: []pubsub.UserEmail{{ID: "e1", EmailAddress: " Ada@Example.COM "}, {ID: "e2", EmailAddress: "x@y.z"}},
	})
	require.NoError(t, err)
	assert.Equal(t, &User{ID: "user_1", Email: "ada@example.com", Name: "Ada Lovelace", Image: "https://img.test/ada.png"}, u)
}

func TestFromIdentity_NameFallbacks(t *testing.T) {
	emails := []pubsub.UserEmail{{EmailAddress: "solo@example.com"}}

	u, err := FromIdentity(pubsub.UserPayload{ID: "u", FirstName: "Solo", EmailAddresses: emails})
	require.NoError(t, err)
	assert.Equal(t, "Solo", u.Name)

	u, err = FromIdentity(pubsub.UserPayload{ID: "u", Username: "solo_dev", EmailAddresses: emails})
	require.NoError(t, err)
	assert.Equal(t, "solo_dev", u.Name)

	u, err = FromIdentity(pubsub.UserPayload{ID: "u", EmailAddresses: emails})
	require.NoError(t, err)
	assert.Equal(t, "solo@example.com", u.Name)
}

func TestFromIdentity_Rejects(t *testing.T) {
	_, err := FromIdentity(pubsub.UserPayload{EmailAddresses: []pubsub.UserEmail{{EmailAddress: "a@b.c"}}})
	require.ErrorIs(t, err, ErrMissingID)

	_, err = FromIdentity(pubsub.UserPayload{ID: "u"})
	require.ErrorIs(t, err, ErrMissingEmail)
}

func TestDirectoryQuery_Normalize(t *testing.T) {
	q := DirectoryQuery{Limit: 500, Offset: -3}
	q.Normalize()
	assert.Equal(t, MaxLimit, q.Limit)
	assert.Equal(t, 0, q.Offset)
	assert.Equal(t, directory.ByName(), q.Sort)

	q = DirectoryQuery{}
	q.Normalize()
	assert.Equal(t, DefaultLimit, q.Limit)
}
