package operation

import "bizcard/internal/api/v1/dto"

// Auth Operations

type SignUpInput struct {
	Body dto.SignUpRequestDTO `json:"body"`
}

type SignInInput struct {
	Body dto.SignInRequestDTO `json:"body"`
}

type SessionOutput struct {
	Body dto.SessionResponseDTO `json:"body"`
}

type SignInWithOTPInput struct {
	Body dto.EmailRequestDTO `json:"body"`
}

type ResetPasswordInput struct {
	Body dto.EmailRequestDTO `json:"body"`
}

type SuccessOutput struct {
	Body dto.SuccessResponseDTO `json:"body"`
}

type SignInWithOAuthInput struct {
	Body dto.OAuthRequestDTO `json:"body"`
}

type URLOutput struct {
	Body dto.URLResponseDTO `json:"body"`
}

type VerifyOTPInput struct {
	Body dto.VerifyOTPRequestDTO `json:"body"`
}

type SignOutInput struct {
	// No input needed - user ID comes from auth context
}

type SignOutOutput struct {
	// 204 No Content - no body
}

type UpdatePasswordInput struct {
	Body dto.PasswordRequestDTO `json:"body"`
}
