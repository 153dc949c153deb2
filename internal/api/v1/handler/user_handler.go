package handler

import (
	"context"
	"errors"
	"io"

	"bizcard/internal/api/v1/dto"
	"bizcard/internal/api/v1/operation"
	"bizcard/internal/model"
	"bizcard/internal/preferences"
	"bizcard/internal/repository"
	"bizcard/internal/storage"
	"bizcard/internal/store"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rs/zerolog"
)

// AvatarUploader stores avatar images and returns their public URL.
type AvatarUploader interface {
	Upload(ctx context.Context, userID string, data []byte) (string, error)
	Delete(ctx context.Context, url string) error
}

// PreferenceStore is the per-user local preference cache.
type PreferenceStore interface {
	LoadNotifications(ctx context.Context, userID string) model.NotificationPreferences
	SaveNotifications(ctx context.Context, userID string, p model.NotificationPreferences) error
	LoadAppearance(ctx context.Context, userID string) model.AppearancePreferences
	SaveAppearance(ctx context.Context, userID string, p model.AppearancePreferences) error
}

type UserHandler struct {
	registry *store.Registry
	profiles repository.ProfileRepository
	avatars  AvatarUploader
	prefs    PreferenceStore
	logger   zerolog.Logger
}

func NewUserHandler(registry *store.Registry, profiles repository.ProfileRepository, avatars AvatarUploader, prefs PreferenceStore, logger zerolog.Logger) *UserHandler {
	return &UserHandler{
		registry: registry,
		profiles: profiles,
		avatars:  avatars,
		prefs:    prefs,
		logger:   logger.With().Str("handler", "UserHandler").Logger(),
	}
}

func userResponse(snap store.AuthSnapshot) dto.UserResponseDTO {
	out := dto.UserResponseDTO{
		IsPremium: snap.IsPremium,
		CardLimit: store.CardLimit(snap.IsPremium),
		Profile:   snap.Profile,
	}
	if snap.User != nil {
		out.ID = snap.User.ID
		out.Email = snap.User.Email
		if name, ok := snap.User.UserMetadata["full_name"].(string); ok {
			out.FullName = name
		}
	}
	if p := snap.Profile; p != nil {
		if p.FullName != "" {
			out.FullName = p.FullName
		}
		out.AvatarURL = p.AvatarURL
	}
	out.PremiumSource, _ = store.DefaultPremiumPolicy.Source(snap.User, snap.Profile)
	return out
}

func (h *UserHandler) GetMe(ctx context.Context, input *operation.GetMeInput) (*operation.GetMeOutput, error) {
	st, err := getState(ctx, h.registry)
	if err != nil {
		return nil, err
	}
	return &operation.GetMeOutput{Body: userResponse(st.Auth.Snapshot())}, nil
}

// UploadAvatar replaces the caller's avatar. The previous object is removed once the profile points at the new one.
func (h *UserHandler) UploadAvatar(ctx context.Context, input *operation.UploadAvatarInput) (*operation.UploadAvatarOutput, error) {
	st, err := getState(ctx, h.registry)
	if err != nil {
		return nil, err
	}
	userID := st.Auth.UserID()

	file := input.RawBody.Data().File
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, storage.MaxAvatarSize+1))
	if err != nil {
		return nil, huma.Error400BadRequest("Failed to read uploaded file", err)
	}

	url, err := h.avatars.Upload(ctx, userID, data)
	switch {
	case errors.Is(err, storage.ErrEmptyFile), errors.Is(err, storage.ErrFileTooLarge), errors.Is(err, storage.ErrUnsupportedType):
		return nil, huma.Error400BadRequest(err.Error())
	case err != nil:
		return nil, huma.Error502BadGateway("Failed to upload avatar", err)
	}

	user := st.Auth.User()
	profile, err := h.profiles.Create(ctx, &model.Profile{ID: userID, Email: user.Email})
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to ensure profile before avatar update")
		return nil, huma.Error500InternalServerError("Failed to update profile", err)
	}
	previous := profile.AvatarURL
	if err := h.profiles.UpdateAvatarURL(ctx, userID, url); err != nil {
		h.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to store avatar url")
		_ = h.avatars.Delete(ctx, url)
		return nil, huma.Error500InternalServerError("Failed to update profile", err)
	}
	if previous != "" && previous != url {
		if err := h.avatars.Delete(ctx, previous); err != nil {
			h.logger.Warn().Err(err).Str("user_id", userID).Msg("Failed to delete previous avatar")
		}
	}
	st.Auth.RefreshProfile(ctx)

	h.logger.Info().Str("user_id", userID).Msg("Avatar updated")
	return &operation.UploadAvatarOutput{Body: dto.AvatarResponseDTO{AvatarURL: url}}, nil
}

func notificationsDTO(p model.NotificationPreferences) dto.NotificationPreferencesDTO {
	return dto.NotificationPreferencesDTO(p)
}

func appearanceResponse(p model.AppearancePreferences, systemDark bool) dto.AppearanceResponseDTO {
	return dto.AppearanceResponseDTO{
		AppearancePreferencesDTO: dto.AppearancePreferencesDTO(p),
		ThemeClass:               preferences.ThemeClass(p, systemDark),
	}
}

func (h *UserHandler) GetNotificationPreferences(ctx context.Context, input *operation.GetNotificationPreferencesInput) (*operation.NotificationPreferencesOutput, error) {
	userID, err := getUserIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return &operation.NotificationPreferencesOutput{Body: notificationsDTO(h.prefs.LoadNotifications(ctx, userID))}, nil
}

func (h *UserHandler) UpdateNotificationPreferences(ctx context.Context, input *operation.UpdateNotificationPreferencesInput) (*operation.NotificationPreferencesOutput, error) {
	userID, err := getUserIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	p := model.NotificationPreferences(input.Body)
	if err := h.prefs.SaveNotifications(ctx, userID, p); err != nil {
		h.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to save notification preferences")
		return nil, huma.Error500InternalServerError("Failed to save preferences", err)
	}
	return &operation.NotificationPreferencesOutput{Body: notificationsDTO(p)}, nil
}

func (h *UserHandler) GetAppearancePreferences(ctx context.Context, input *operation.GetAppearancePreferencesInput) (*operation.AppearancePreferencesOutput, error) {
	userID, err := getUserIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	p := h.prefs.LoadAppearance(ctx, userID)
	return &operation.AppearancePreferencesOutput{Body: appearanceResponse(p, input.SystemDark)}, nil
}

func (h *UserHandler) UpdateAppearancePreferences(ctx context.Context, input *operation.UpdateAppearancePreferencesInput) (*operation.AppearancePreferencesOutput, error) {
	userID, err := getUserIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	p := model.AppearancePreferences(input.Body)
	if err := h.prefs.SaveAppearance(ctx, userID, p); err != nil {
		if errors.Is(err, preferences.ErrInvalidTheme) {
			return nil, huma.Error400BadRequest(err.Error())
		}
		h.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to save appearance preferences")
		return nil, huma.Error500InternalServerError("Failed to save preferences", err)
	}
	return &operation.AppearancePreferencesOutput{Body: appearanceResponse(p, input.SystemDark)}, nil
}
