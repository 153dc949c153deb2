package operation

import (
	"bizcard/internal/api/v1/dto"

	"github.com/danielgtaylor/huma/v2"
)

type GetMeInput struct {
	// No input needed - user ID comes from auth context
}

type GetMeOutput struct {
	Body dto.UserResponseDTO `json:"body"`
}

type AvatarForm struct {
	File huma.FormFile `form:"file" required:"true"`
}

type UploadAvatarInput struct {
	RawBody huma.MultipartFormFiles[AvatarForm]
}

type UploadAvatarOutput struct {
	Body dto.AvatarResponseDTO `json:"body"`
}

// Preferences Operations

type GetNotificationPreferencesInput struct{}

type NotificationPreferencesOutput struct {
	Body dto.NotificationPreferencesDTO `json:"body"`
}

type UpdateNotificationPreferencesInput struct {
	Body dto.NotificationPreferencesDTO `json:"body"`
}

type GetAppearancePreferencesInput struct {
	SystemDark bool `query:"system_dark" doc:"Whether the client prefers a dark color scheme"`
}

type AppearancePreferencesOutput struct {
	Body dto.AppearanceResponseDTO `json:"body"`
}

type UpdateAppearancePreferencesInput struct {
	SystemDark bool                         `query:"system_dark" doc:"Whether the client prefers a dark color scheme"`
	Body       dto.AppearancePreferencesDTO `json:"body"`
}
