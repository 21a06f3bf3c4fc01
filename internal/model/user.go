package model

// User represents a user account with its token balance
type User struct {
	ID        int    `json:"id" db:"id"`
	Email     string `json:"email" db:"email"`
	Password  string `json:"-" db:"password_hash"` // Don't serialize password
	Tokens    int    `json:"tokens" db:"tokens"`
	IsAdmin   bool   `json:"is_admin" db:"is_admin"`
	CreatedAt string `json:"created_at" db:"created_at"`
}

// UserCreate represents a registration request
type UserCreate struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// UserLogin represents a login request
type UserLogin struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse represents a JWT token response
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// TokenBalanceResponse is returned by GET /user/tokens
type TokenBalanceResponse struct {
	Username string `json:"username"`
	Tokens   int    `json:"tokens"`
}

// AddTokensRequest is the admin token-grant payload. The credit card number
// is a simulated payment detail and is never stored.
type AddTokensRequest struct {
	Email      string `json:"email" binding:"required,email"`
	CreditCard string `json:"credit_card" binding:"required"`
	Amount     int    `json:"amount" binding:"required"`
}

// ResetPasswordRequest is the admin password-reset payload
type ResetPasswordRequest struct {
	Email       string `json:"email" binding:"required,email"`
	NewPassword string `json:"new_password" binding:"required"`
}
