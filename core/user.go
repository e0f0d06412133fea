package core

// UserEntity is the stored credential record of a user.
// Password holds the digest of the raw password concatenated with Salt.
type UserEntity struct {
	ID         int64
	Username   string
	Password   string
	Salt       string
	Role       string
	IsDisabled bool
}

// UserInfo is the basic, non-secret view of a user.
type UserInfo struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Info strips the credential fields.
func (u *UserEntity) Info() UserInfo {
	if u == nil {
		return UserInfo{}
	}
	return UserInfo{ID: u.ID, Username: u.Username, Role: u.Role}
}
