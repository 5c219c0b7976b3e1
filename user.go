package cloudbalance

// Identity is the snapshot of a principal that a session is held on behalf of.
type Identity struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Role      Role   `json:"role"`
}

// Name returns the identity's full name, falling back to its username.
func (i Identity) Name() string {
	switch {
	case i.FirstName != "" && i.LastName != "":
		return i.FirstName + " " + i.LastName
	case i.FirstName != "":
		return i.FirstName
	}
	return i.Username
}

// User is a CloudBalance user as managed by administrators.
type User struct {
	ID               int64          `json:"id"`
	Username         string         `json:"username"`
	FirstName        string         `json:"firstName"`
	LastName         string         `json:"lastName"`
	Email            string         `json:"email"`
	Role             Role           `json:"roleName"`
	Created          *Timestamp     `json:"createdAt,omitempty"`
	AssignedAccounts []CloudAccount `json:"assignedAccounts,omitempty"`
}

// Identity returns the subset of the user that a session carries.
func (u User) Identity() Identity {
	return Identity{
		ID:        u.ID,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Role:      u.Role,
	}
}

// UserCreate is the request body for creating a new user.
type UserCreate struct {
	Username   string  `json:"username"`
	Password   string  `json:"password"`
	FirstName  string  `json:"firstName"`
	LastName   string  `json:"lastName"`
	Email      string  `json:"email"`
	Role       Role    `json:"roleName"`
	AccountIDs []int64 `json:"accountIds,omitempty"`
}

// UserUpdate is the request body for updating an existing user. Empty fields
// are left unchanged by the API server.
type UserUpdate struct {
	Username   string  `json:"username,omitempty"`
	Password   string  `json:"password,omitempty"`
	FirstName  string  `json:"firstName,omitempty"`
	LastName   string  `json:"lastName,omitempty"`
	Email      string  `json:"email,omitempty"`
	Role       Role    `json:"roleName,omitempty"`
	AccountIDs []int64 `json:"accountIds,omitempty"`
}
