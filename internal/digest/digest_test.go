package digest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseChallengeQuotedFields(t *testing.T) {
	header := `Digest realm="testrealm@host.com", qop="auth", nonce="dcd98b7102dd2f0e8b11d0f600bfb0c093", opaque="5ccc069c403ebaf9f0171e9517f40e41"`

	ch, err := ParseChallenge(header)
	require.NoError(t, err)

	assert.Equal(t, "testrealm@host.com", ch.Realm)
	assert.Equal(t, "auth", ch.QOP)
	assert.Equal(t, "dcd98b7102dd2f0e8b11d0f600bfb0c093", ch.Nonce)
	assert.Equal(t, "5ccc069c403ebaf9f0171e9517f40e41", ch.Opaque)
}

func TestRespondWithoutQOPMatchesRFC2069Form(t *testing.T) {
	ch := Challenge{Realm: "testrealm@host.com", Nonce: "dcd98b7102dd2f0e8b11d0f600bfb0c093"}
	cr := Respond(ch, "Mufasa", "Circle Of Life", "GET", "/dir/index.html", 1)

	assert.Empty(t, cr.QOP)
	assert.Len(t, cr.Response, 32)
}

func TestRespondWithQOPIncludesCNonceAndNC(t *testing.T) {
	ch := Challenge{Realm: "r", Nonce: "n", QOP: "auth"}
	cr := Respond(ch, "user", "pass", "GET", "/x", 1)

	assert.Equal(t, "auth", cr.QOP)
	assert.Equal(t, "00000001", cr.NC)
	assert.NotEmpty(t, cr.CNonce)
	assert.Contains(t, cr.Authorization(), `qop=auth`)
}
