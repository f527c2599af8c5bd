package fastly

import "net/http"

// KeyHeader carries the API token on every request.
const KeyHeader = "Fastly-Key"

// Authenticator attaches the API token to outgoing requests.
type Authenticator struct {
	token string
}

func NewAuthenticator(token string) *Authenticator {
	return &Authenticator{token: token}
}

// Decorate sets the token header on req.
func (a *Authenticator) Decorate(req *http.Request) {
	req.Header.Set(KeyHeader, a.token)
}

// Transport wraps base so every request it sends is decorated. A nil base
// means http.DefaultTransport.
func (a *Authenticator) Transport(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &authTransport{auth: a, base: base}
}

type authTransport struct {
	auth *Authenticator
	base http.RoundTripper
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// RoundTrippers must not modify the caller's request.
	r := req.Clone(req.Context())
	t.auth.Decorate(r)
	return t.base.RoundTrip(r)
}
