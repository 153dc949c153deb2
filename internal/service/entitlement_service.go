package service

import (
	"context"

	"bizcard/internal/repository"
	"bizcard/internal/store"

	"github.com/rs/zerolog"
)

// MetadataUpdater writes user metadata with service-role rights.
type MetadataUpdater interface {
	UpdateUserMetadata(ctx context.Context, userID string, data map[string]any) error
}

// EntitlementService switches the premium flag of a user, signed in or not.
type EntitlementService interface {
	SetPremium(ctx context.Context, userID string, isPremium bool) error
}

type entitlementService struct {
	registry *store.Registry
	profiles repository.ProfileRepository
	admin    MetadataUpdater
	logger   zerolog.Logger
}

// NewEntitlementService returns an EntitlementService. admin may be nil when no service role key is configured.
func NewEntitlementService(registry *store.Registry, profiles repository.ProfileRepository, admin MetadataUpdater, logger zerolog.Logger) EntitlementService {
	return &entitlementService{
		registry: registry,
		profiles: profiles,
		admin:    admin,
		logger:   logger.With().Str("service", "EntitlementService").Logger(),
	}
}

// SetPremium goes through the user's live AuthStore when there is one so its derived state follows.
// The profile row decides the outcome; the metadata write is best-effort.
func (s *entitlementService) SetPremium(ctx context.Context, userID string, isPremium bool) error {
	if st, ok := s.registry.Get(userID); ok {
		if res := st.Auth.UpdatePremiumStatus(ctx, isPremium); !res.Success {
			return res.Err
		}
	} else if err := s.profiles.UpdatePremium(ctx, userID, isPremium); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to update premium flag on profile")
		return err
	}

	// user_metadata outranks the profile when deriving premium, so it must not go stale
	if s.admin != nil {
		if err := s.admin.UpdateUserMetadata(ctx, userID, map[string]any{"is_premium": isPremium}); err != nil {
			s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to update premium flag in user metadata")
		}
	}
	s.logger.Info().Str("user_id", userID).Bool("is_premium", isPremium).Msg("Premium status updated")
	return nil
}
