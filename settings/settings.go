// Package settings is the read-through accessor for per-guild and per-user bot settings.
// The store is the source of truth; guild prefixes are additionally held in memory.
package settings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/onnwee/aswo/ordr"
	"github.com/onnwee/aswo/telemetry"
)

// Store is the persistence the service reads through to.
type Store interface {
	GetPrefix(ctx context.Context, guildID string) (string, bool, error)
	UpsertPrefix(ctx context.Context, guildID, prefix string) error
	ListPrefixes(ctx context.Context) (map[string]string, error)
	GetOsuUsername(ctx context.Context, userID string) (string, bool, error)
	UpsertOsuUsername(ctx context.Context, userID, username string) error
	GetSkin(ctx context.Context, userID string) (int, bool, error)
	UpsertSkin(ctx context.Context, userID string, skinID int) error
}

// MaxPrefixLen bounds guild prefixes.
const MaxPrefixLen = 8

// ErrInvalidPrefix is returned by SetPrefix for empty, overlong or whitespace prefixes.
var ErrInvalidPrefix = errors.New("prefix must be 1-8 characters without spaces")

// Service caches guild prefixes in front of a Store.
type Service struct {
	store         Store
	defaultPrefix string

	mu       sync.RWMutex
	prefixes map[string]string
}

// New returns a Service. defaultPrefix applies to guilds with no stored prefix.
func New(store Store, defaultPrefix string) *Service {
	if defaultPrefix == "" {
		defaultPrefix = ">>"
	}
	return &Service{store: store, defaultPrefix: defaultPrefix, prefixes: make(map[string]string)}
}

// DefaultPrefix is the prefix used when a guild has none stored.
func (s *Service) DefaultPrefix() string { return s.defaultPrefix }

// Warm loads every stored prefix into memory.
func (s *Service) Warm(ctx context.Context) error {
	all, err := s.store.ListPrefixes(ctx)
	if err != nil {
		return fmt.Errorf("warm prefix cache: %w", err)
	}
	s.mu.Lock()
	for k, v := range all {
		s.prefixes[k] = v
	}
	n := len(s.prefixes)
	s.mu.Unlock()
	telemetry.SetPrefixCacheSize(n)
	slog.Info("prefix cache warmed", slog.Int("guilds", n), slog.String("component", "settings"))
	return nil
}

// Prefix returns the guild's prefix. Cache misses read through to the store; store errors
// fall back to the default prefix so commands keep working.
func (s *Service) Prefix(ctx context.Context, guildID string) string {
	if guildID == "" {
		return s.defaultPrefix
	}
	s.mu.RLock()
	p, ok := s.prefixes[guildID]
	s.mu.RUnlock()
	if ok {
		return p
	}
	p, ok, err := s.store.GetPrefix(ctx, guildID)
	if err != nil {
		slog.Warn("prefix lookup failed", slog.String("guild_id", guildID), slog.Any("err", err), slog.String("component", "settings"))
		return s.defaultPrefix
	}
	if !ok {
		p = s.defaultPrefix
	}
	s.cachePrefix(guildID, p)
	return p
}

// SetPrefix writes the prefix to the store, then updates the cache.
func (s *Service) SetPrefix(ctx context.Context, guildID, prefix string) error {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" || len(prefix) > MaxPrefixLen || strings.ContainsAny(prefix, " \t\n") {
		return ErrInvalidPrefix
	}
	if err := s.store.UpsertPrefix(ctx, guildID, prefix); err != nil {
		return fmt.Errorf("save prefix: %w", err)
	}
	s.cachePrefix(guildID, prefix)
	return nil
}

func (s *Service) cachePrefix(guildID, prefix string) {
	s.mu.Lock()
	s.prefixes[guildID] = prefix
	n := len(s.prefixes)
	s.mu.Unlock()
	telemetry.SetPrefixCacheSize(n)
}

// CachedPrefixes returns the number of guilds held in memory.
func (s *Service) CachedPrefixes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.prefixes)
}

// OsuUsername returns the osu! username linked to userID.
func (s *Service) OsuUsername(ctx context.Context, userID string) (string, bool, error) {
	return s.store.GetOsuUsername(ctx, userID)
}

// SetOsuUsername links userID to an osu! username.
func (s *Service) SetOsuUsername(ctx context.Context, userID, username string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return fmt.Errorf("username empty")
	}
	return s.store.UpsertOsuUsername(ctx, userID, username)
}

// Skin returns the user's replay skin, or ordr.DefaultSkinID when unset.
func (s *Service) Skin(ctx context.Context, userID string) (int, error) {
	id, ok, err := s.store.GetSkin(ctx, userID)
	if err != nil {
		return 0, err
	}
	if !ok {
		return ordr.DefaultSkinID, nil
	}
	return id, nil
}

// SetSkin stores the user's replay skin.
func (s *Service) SetSkin(ctx context.Context, userID string, skinID int) error {
	return s.store.UpsertSkin(ctx, userID, skinID)
}
