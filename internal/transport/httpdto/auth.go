package httpdto

// RegisterRequest is used for POST /v1/auth/register
type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginRequest is used for POST /v1/auth/login. Either DeviceID, or
// DeviceClass together with PublicKey, must be set.
type LoginRequest struct {
	Identity    string `json:"identity" binding:"required"` // email or username
	Password    string `json:"password" binding:"required"`
	DeviceID    string `json:"device_id,omitempty"`
	DeviceClass string `json:"device_class,omitempty"`
	PublicKey   string `json:"public_key,omitempty"`
}

type Credentials struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	ExpiresAt   string `json:"expires_at"`
}

// AuthResponse is returned by login and pairing redemption.
type AuthResponse struct {
	User        *User       `json:"user,omitempty"`
	UserID      string      `json:"user_id"`
	Device      Device      `json:"device"`
	Credentials Credentials `json:"credentials"`
}
