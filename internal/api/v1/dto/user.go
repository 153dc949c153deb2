package dto

import "bizcard/internal/model"

// UserResponseDTO is the signed-in user with the derived plan
type UserResponseDTO struct {
	ID            string         `json:"id"`
	Email         string         `json:"email"`
	FullName      string         `json:"full_name"`
	AvatarURL     string         `json:"avatar_url"`
	IsPremium     bool           `json:"is_premium"`
	PremiumSource string         `json:"premium_source,omitempty"`
	CardLimit     int            `json:"card_limit"`
	Profile       *model.Profile `json:"profile,omitempty"`
}

type AvatarResponseDTO struct {
	AvatarURL string `json:"avatar_url"`
}

type NotificationPreferencesDTO struct {
	EmailOnScan    bool `json:"email_on_scan"`
	EmailOnContact bool `json:"email_on_contact"`
	WeeklySummary  bool `json:"weekly_summary"`
	ProductUpdates bool `json:"product_updates"`
}

type AppearancePreferencesDTO struct {
	Theme       string `json:"theme" enum:"light,dark,system"`
	CompactMode bool   `json:"compact_mode,omitempty"`
	AccentColor string `json:"accent_color,omitempty"`
}

type AppearanceResponseDTO struct {
	AppearancePreferencesDTO
	ThemeClass string `json:"theme_class" doc:"Class applied to the document root"`
}
