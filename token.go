package cloudbalance

// TokenSource supplies the session token to attach to an outbound request. It
// is consulted once per request, at send time.
type TokenSource interface {
	Token() string
}

// TokenSourceFunc adapts an ordinary function to the TokenSource interface.
type TokenSourceFunc func() string

func (t TokenSourceFunc) Token() string {
	return t()
}

// StaticToken is a TokenSource that always returns the same token.
type StaticToken string

func (s StaticToken) Token() string {
	return string(s)
}
