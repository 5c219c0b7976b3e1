package cloudbalance

type apiRequest struct {
	method      string
	path        string
	queryParams map[string]string
	headers     map[string]string
	reqBodyObj  interface{}
	successCode int
	// respObj receives the envelope's data, or the whole body if raw is set.
	respObj interface{}
	// respMsg, if non-nil, receives the envelope's message.
	respMsg *string
	// anonymous requests are sent without the session token.
	anonymous bool
	// bearerToken, if set, is sent instead of the TokenSource's token.
	bearerToken string
	// raw requests are answered with a bare JSON body instead of an envelope.
	raw bool
}
