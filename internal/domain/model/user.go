package model

// UserToLogin is the login payload.
type UserToLogin struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// UserToRegister is the registration payload.
type UserToRegister struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// User is an account. Token is only populated in the login response.
type User struct {
	UserID        uint   `json:"userid"`
	Username      string `json:"username"`
	IsAdmin       bool   `json:"is_admin"`
	TotalMessages int64  `json:"total_messages"`
	Token         string `json:"token,omitempty"`
}

// UserStatus is the roster projection of a User.
type UserStatus struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"is_admin"`
}
