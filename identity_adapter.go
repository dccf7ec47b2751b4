package auth

// NewIdentityFromUser converts a user record into the identity used for
// token generation.
func NewIdentityFromUser(user *User) Identity {
	if user == nil {
		return Identity{}
	}
	return Identity{
		ID:          user.ID.String(),
		Email:       user.Email,
		AccountType: user.AccountType,
	}
}
