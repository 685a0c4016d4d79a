package ordr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/onnwee/aswo/cache"
)

const (
	catalogPageSize = 400
	catalogCacheKey = "ordr:skins:page1"
)

// DefaultSkinID is used for users who never configured a skin.
const DefaultSkinID = 1

// SkinLister is the catalog read side of Client.
type SkinLister interface {
	ListSkins(ctx context.Context, page, pageSize int) (SkinPage, error)
}

// SkinCatalog caches the first catalog page and resolves skin ids against it.
type SkinCatalog struct {
	Lister SkinLister
	Cache  cache.Cache
	TTL    time.Duration
}

// NewSkinCatalog returns a catalog backed by c; a nil cache means an in-memory one.
func NewSkinCatalog(lister SkinLister, c cache.Cache, ttl time.Duration) *SkinCatalog {
	if c == nil {
		c = cache.NewMemory()
	}
	return &SkinCatalog{Lister: lister, Cache: c, TTL: ttl}
}

// Skins returns the cached catalog page, fetching it on a miss.
func (sc *SkinCatalog) Skins(ctx context.Context) ([]Skin, error) {
	if b, err := sc.Cache.Get(ctx, catalogCacheKey); err == nil {
		var skins []Skin
		if err := json.Unmarshal(b, &skins); err == nil {
			return skins, nil
		}
		slog.Warn("discarding corrupt skin catalog cache entry", slog.String("component", "ordr"))
	} else if !errors.Is(err, cache.ErrMiss) {
		slog.Warn("skin catalog cache read failed", slog.Any("err", err), slog.String("component", "ordr"))
	}

	page, err := sc.Lister.ListSkins(ctx, 1, catalogPageSize)
	if err != nil {
		return nil, fmt.Errorf("fetch skin catalog: %w", err)
	}
	slog.Debug("skin catalog fetched", slog.Int("count", len(page.Skins)), slog.Int("max_skins", page.MaxSkins), slog.String("component", "ordr"))
	if b, err := json.Marshal(page.Skins); err == nil {
		if err := sc.Cache.Set(ctx, catalogCacheKey, b, sc.TTL); err != nil {
			slog.Warn("skin catalog cache write failed", slog.Any("err", err), slog.String("component", "ordr"))
		}
	}
	return page.Skins, nil
}

// Lookup resolves id in the catalog. ok is false when the farm does not list it.
func (sc *SkinCatalog) Lookup(ctx context.Context, id int) (Skin, bool, error) {
	skins, err := sc.Skins(ctx)
	if err != nil {
		return Skin{}, false, err
	}
	for _, s := range skins {
		if s.ID == id {
			return s, true, nil
		}
	}
	return Skin{}, false, nil
}
