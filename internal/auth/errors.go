package auth

import "fmt"

// Provider error codes we branch on. Anything else falls through to a generic
// message.
const (
	CodeEmailNotFound      = "EMAIL_NOT_FOUND"
	CodeInvalidPassword    = "INVALID_PASSWORD"
	CodeInvalidEmail       = "INVALID_EMAIL"
	CodeUserDisabled       = "USER_DISABLED"
	CodeInvalidCredentials = "INVALID_LOGIN_CREDENTIALS"
	CodeNetwork            = "NETWORK_ERROR"
)

// AuthError carries the provider code plus the message shown to the user.
type AuthError struct {
	Code    string
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth: %s: %s", e.Code, e.Message)
}

// userMessage maps provider codes to the wording the account owner sees.
func userMessage(code string) string {
	switch code {
	case CodeEmailNotFound:
		return "No account found with this email"
	case CodeInvalidPassword, CodeInvalidCredentials:
		return "Incorrect password"
	case CodeInvalidEmail:
		return "Invalid email address"
	case CodeUserDisabled:
		return "This account has been disabled"
	case CodeNetwork:
		return "Network error. Please check your connection"
	default:
		return "Sign in failed. Please try again"
	}
}

func newAuthError(code string) *AuthError {
	return &AuthError{Code: code, Message: userMessage(code)}
}
