package httpclient

import (
	"encoding/base64"

	"github.com/joeycumines/go-evhttp/internal/digest"
)

// AuthScheme selects which credentials (if any) the client should retry
// a 401 with - spec 4.G AUTH_RETRY.
type AuthScheme int

const (
	AuthNone AuthScheme = iota
	AuthBasic
	AuthDigest
)

// AuthConfig holds the credentials registered via AddBasicAuthentication
// / AddDigestAuthentication.
type AuthConfig struct {
	Scheme   AuthScheme
	Username string
	Password string

	digestNC int // nonce-use counter shared by every origin, incremented per digest retry
}

func basicAuthorization(username, password string) string {
	raw := username + ":" + password
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(raw))
}

// digestAuthorization computes the Authorization header for one request
// given the server's WWW-Authenticate challenge.
func (a *AuthConfig) digestAuthorization(challengeHeader, method, uri string) (string, error) {
	ch, err := digest.ParseChallenge(challengeHeader)
	if err != nil {
		return "", err
	}
	a.digestNC++
	cr := digest.Respond(ch, a.Username, a.Password, method, uri, a.digestNC)
	return cr.Authorization(), nil
}
