package dto

// SignUpRequestDTO is used for email/password registration
type SignUpRequestDTO struct {
	Email    string `json:"email" format:"email"`
	Password string `json:"password" minLength:"6"`
	FullName string `json:"full_name,omitempty"`
}

type SignInRequestDTO struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type EmailRequestDTO struct {
	Email string `json:"email" format:"email"`
}

type OAuthRequestDTO struct {
	Provider string `json:"provider" enum:"google,github,linkedin_oidc,apple" doc:"Identity provider name"`
}

type VerifyOTPRequestDTO struct {
	TokenHash string `json:"token_hash"`
	Type      string `json:"type" enum:"magiclink,signup,recovery,invite,email_change,email"`
}

type PasswordRequestDTO struct {
	Password string `json:"password" minLength:"6"`
}

// SessionResponseDTO carries the tokens after a sign-in. ConfirmationRequired is set when
// the account exists but the email must be confirmed before a session is issued.
type SessionResponseDTO struct {
	AccessToken          string           `json:"access_token,omitempty"`
	RefreshToken         string           `json:"refresh_token,omitempty"`
	ExpiresAt            int64            `json:"expires_at,omitempty"`
	ConfirmationRequired bool             `json:"confirmation_required"`
	User                 *UserResponseDTO `json:"user,omitempty"`
}

type URLResponseDTO struct {
	URL string `json:"url"`
}

type SuccessResponseDTO struct {
	Success bool `json:"success"`
}
