package cloudbalance

// Credentials are what a user presents to log in.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// SessionGrant is what the API server returns whenever it issues a session
// token: on login, on impersonation and on reverting an impersonation.
type SessionGrant struct {
	SessionToken string `json:"sessionToken"`
	UserID       int64  `json:"userId"`
	Username     string `json:"username"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Email        string `json:"email"`
	Role         Role   `json:"role"`
}

// Identity returns the principal the grant was issued to.
func (s SessionGrant) Identity() Identity {
	return Identity{
		ID:        s.UserID,
		Username:  s.Username,
		FirstName: s.FirstName,
		LastName:  s.LastName,
		Email:     s.Email,
		Role:      s.Role,
	}
}

// validate rejects grants that would leave a session half-populated.
func (s SessionGrant) validate() error {
	switch {
	case s.SessionToken == "":
		return &ErrMalformedResponse{Reason: "session grant has no session token"}
	case s.UserID == 0:
		return &ErrMalformedResponse{Reason: "session grant has no user ID"}
	case !s.Role.Valid():
		return &ErrMalformedResponse{
			Reason: "session grant has unrecognized role " + string(s.Role),
		}
	}
	return nil
}
