package service

import (
	"context"
	"errors"
	"fmt"
	"maps"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"

	"sonna/internal/config"
	"sonna/internal/model"
	"sonna/internal/pkg/cache"
	"sonna/internal/pkg/id"
	"sonna/internal/repository"
)

// LegacyUserName is the display name earlier deployments created the
// single profile under. The identity migration folds it into the
// configured default user.
const LegacyUserName = "Sonna User"

var ErrUserNotInitialized = errors.New("default user not initialized")

// UserStore persistence needed by the user service.
type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByName(ctx context.Context, name string) (*model.User, error)
	UpdateName(ctx context.Context, id, name string) error
	UpdatePreferences(ctx context.Context, id string, prefs map[string]any) error
	Delete(ctx context.Context, id string) error
}

// ConversationReassigner moves conversation ownership between users.
type ConversationReassigner interface {
	ReassignUser(ctx context.Context, fromUserID, toUserID string) (int64, error)
}

// UserService single-profile identity operations. The default user is
// resolved once by EnsureDefault before the server takes traffic;
// afterwards the resolved ID is treated as immutable, so request paths
// never probe for legacy identities.
type UserService struct {
	users     UserStore
	cache     *cache.RedisCache // optional, nil disables caching
	cfg       config.UserConfig
	defaultID string
}

// NewUserService creates a user service
func NewUserService(users UserStore, redisCache *cache.RedisCache, cfg config.UserConfig) *UserService {
	return &UserService{
		users: users,
		cache: redisCache,
		cfg:   cfg,
	}
}

// EnsureDefault resolves the default profile by configured email,
// creating it when absent, and fixes a drifted display name. Must
// complete before the service handles requests.
func (s *UserService) EnsureDefault(ctx context.Context) (*model.User, error) {
	user, err := s.users.FindByEmail(ctx, s.cfg.Email)
	if errors.Is(err, repository.ErrNotFound) {
		user = &model.User{
			ID:          id.New(),
			Name:        s.cfg.Name,
			Email:       s.cfg.Email,
			Preferences: map[string]any{},
		}
		if createErr := s.users.Create(ctx, user); createErr != nil {
			// Another replica can win the unique-email race; fall back
			// to its row.
			if !mongo.IsDuplicateKeyError(createErr) {
				return nil, fmt.Errorf("create default user: %w", createErr)
			}
			if user, err = s.users.FindByEmail(ctx, s.cfg.Email); err != nil {
				return nil, err
			}
		} else {
			log.Info().Str("user_id", user.ID).Str("email", user.Email).Msg("default user created")
		}
	} else if err != nil {
		return nil, err
	}

	if user.Name != s.cfg.Name {
		if err := s.users.UpdateName(ctx, user.ID, s.cfg.Name); err != nil {
			return nil, fmt.Errorf("fix default user name: %w", err)
		}
		user.Name = s.cfg.Name
	}

	s.defaultID = user.ID
	return user, nil
}

// DefaultUser returns the default profile, via the cache when warm.
func (s *UserService) DefaultUser(ctx context.Context) (*model.User, error) {
	if s.defaultID == "" {
		return nil, ErrUserNotInitialized
	}

	if s.cache != nil {
		var cached model.User
		if err := s.cache.Get(ctx, cache.UserCacheKey(s.defaultID), &cached); err == nil {
			return &cached, nil
		}
	}

	user, err := s.users.FindByID(ctx, s.defaultID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cache.UserCacheKey(s.defaultID), user, cache.UserCacheTTL); err != nil {
			log.Warn().Err(err).Msg("failed to cache user profile")
		}
	}
	return user, nil
}

// UpdatePreferences replaces the preference map wholesale and drops
// the cached profile.
func (s *UserService) UpdatePreferences(ctx context.Context, prefs map[string]any) (*model.User, error) {
	if s.defaultID == "" {
		return nil, ErrUserNotInitialized
	}

	if err := s.users.UpdatePreferences(ctx, s.defaultID, prefs); err != nil {
		return nil, err
	}

	s.invalidate(ctx)
	return s.users.FindByID(ctx, s.defaultID)
}

// MigrationResult summarizes one legacy identity migration run.
type MigrationResult struct {
	CreatedDefault     bool
	PreferencesCopied  bool
	ConversationsMoved int64
	LegacyDeleted      bool
}

// MigrateLegacy folds the legacy profile into the configured default
// user: preferences are copied when the default has none, conversations
// change owner and the legacy row is removed. Runs out of band, never
// on a request path. A missing legacy profile is a no-op.
func (s *UserService) MigrateLegacy(ctx context.Context, conversations ConversationReassigner) (*MigrationResult, error) {
	result := &MigrationResult{}

	legacy, err := s.users.FindByName(ctx, LegacyUserName)
	if errors.Is(err, repository.ErrNotFound) {
		return result, nil
	}
	if err != nil {
		return nil, err
	}

	def, err := s.users.FindByEmail(ctx, s.cfg.Email)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		prefs := maps.Clone(legacy.Preferences)
		if prefs == nil {
			prefs = map[string]any{}
		}
		def = &model.User{
			ID:          id.New(),
			Name:        s.cfg.Name,
			Email:       s.cfg.Email,
			Preferences: prefs,
		}
		if err := s.users.Create(ctx, def); err != nil {
			return nil, fmt.Errorf("create default user: %w", err)
		}
		result.CreatedDefault = true
		result.PreferencesCopied = len(prefs) > 0
	case err != nil:
		return nil, err
	default:
		if len(def.Preferences) == 0 && len(legacy.Preferences) > 0 {
			if err := s.users.UpdatePreferences(ctx, def.ID, legacy.Preferences); err != nil {
				return nil, fmt.Errorf("copy legacy preferences: %w", err)
			}
			result.PreferencesCopied = true
		}
	}

	moved, err := conversations.ReassignUser(ctx, legacy.ID, def.ID)
	if err != nil {
		return nil, fmt.Errorf("reassign conversations: %w", err)
	}
	result.ConversationsMoved = moved

	if err := s.users.Delete(ctx, legacy.ID); err != nil {
		return nil, fmt.Errorf("delete legacy user: %w", err)
	}
	result.LegacyDeleted = true

	s.invalidate(ctx)

	log.Info().
		Bool("created_default", result.CreatedDefault).
		Bool("preferences_copied", result.PreferencesCopied).
		Int64("conversations_moved", result.ConversationsMoved).
		Msg("legacy user migrated")
	return result, nil
}

// invalidate drops the cached profile after a write.
func (s *UserService) invalidate(ctx context.Context) {
	if s.cache == nil || s.defaultID == "" {
		return
	}
	if err := s.cache.Delete(ctx, cache.UserCacheKey(s.defaultID)); err != nil {
		log.Warn().Err(err).Msg("failed to invalidate user cache")
	}
}
