package domain

// TokenTypeBearer is the only token type the service issues.
const TokenTypeBearer = "Bearer"

// AuthResult is returned by a successful login or refresh.
type AuthResult struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresIn    int64 // seconds until the access token expires
	Role         Role
	AccountID    string
	Email        string
}

// RegisterResult is returned by registration.
type RegisterResult struct {
	AccountID     string
	ProfileStatus ProfileStatus
}
