package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"linked_friend_services/src/apperr"
	"linked_friend_services/src/metrics"
	m "linked_friend_services/src/models"
)

// Source records where a read was served from.
type Source string

const (
	SourceCache      Source = "cache"
	SourceRepository Source = "repository"
)

// Key namespaces. Every per-user key ends in ":<userID>" so a single
// "*:<userID>" scan finds all of them. Nothing here writes posts or feed
// entries; those namespaces are kept so status and clear-cache still cover
// keys left by other writers.
const (
	NamespaceProfile = "profile"
	NamespaceFriends = "friends"
	NamespacePosts   = "posts"
	NamespaceFeed    = "feed"

	scanCount = 100
)

func Key(namespace string, userID uuid.UUID) string {
	return namespace + ":" + userID.String()
}

func ProfileKey(userID uuid.UUID) string { return Key(NamespaceProfile, userID) }
func FriendsKey(userID uuid.UUID) string { return Key(NamespaceFriends, userID) }

func userPattern(userID uuid.UUID) string {
	return "*:" + userID.String()
}

// UserLoader is the repository behind the cache.
type UserLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (m.User, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID, limit int) ([]m.User, error)
}

type Options struct {
	ProfileTTL time.Duration
	FriendsTTL time.Duration
}

// ProfileCache is a read-through, write-invalidate cache in front of the
// user repository. A failing Store never fails a read; it degrades to a
// repository read.
type ProfileCache struct {
	store   Store
	users   UserLoader
	opts    Options
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewProfileCache(store Store, users UserLoader, opts Options, logger *zap.Logger, mtr *metrics.Metrics) *ProfileCache {
	return &ProfileCache{store: store, users: users, opts: opts, logger: logger, metrics: mtr}
}

func (c *ProfileCache) GetProfile(ctx context.Context, userID uuid.UUID) (m.Profile, Source, error) {
	key := ProfileKey(userID)

	var profile m.Profile
	if c.lookup(ctx, NamespaceProfile, key, &profile) {
		return profile, SourceCache, nil
	}

	user, err := c.users.FindByID(ctx, userID)
	if err != nil {
		return m.Profile{}, "", err
	}

	profile = user.Profile()
	c.populate(ctx, key, profile, c.opts.ProfileTTL)
	return profile, SourceRepository, nil
}

// GetFriends returns the profiles of userID's direct friends.
func (c *ProfileCache) GetFriends(ctx context.Context, userID uuid.UUID) ([]m.Profile, Source, error) {
	key := FriendsKey(userID)

	var friends []m.Profile
	if c.lookup(ctx, NamespaceFriends, key, &friends) {
		return friends, SourceCache, nil
	}

	user, err := c.users.FindByID(ctx, userID)
	if err != nil {
		return nil, "", err
	}
	users, err := c.users.FindByIDs(ctx, user.Friends, 0)
	if err != nil {
		return nil, "", err
	}

	friends = make([]m.Profile, 0, len(users))
	for _, u := range users {
		friends = append(friends, u.Profile())
	}
	c.populate(ctx, key, friends, c.opts.FriendsTTL)
	return friends, SourceRepository, nil
}

// lookup reports a hit only when the entry exists and decodes.
func (c *ProfileCache) lookup(ctx context.Context, namespace, key string, dst any) bool {
	data, err := c.store.Get(ctx, key)
	switch {
	case errors.Is(err, ErrMiss):
		c.metrics.CacheResult(namespace, "miss")
		return false
	case err != nil:
		c.metrics.CacheResult(namespace, "error")
		c.logger.Warn("Cache read failed, falling back to database", zap.String("key", key), zap.Error(err))
		return false
	}

	if err := json.Unmarshal(data, dst); err != nil {
		c.metrics.CacheResult(namespace, "error")
		c.logger.Warn("Discarding undecodable cache entry", zap.String("key", key), zap.Error(err))
		return false
	}
	c.metrics.CacheResult(namespace, "hit")
	return true
}

func (c *ProfileCache) populate(ctx context.Context, key string, value any, ttl time.Duration) {
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("Failed to encode cache entry", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.store.Set(ctx, key, data, ttl); err != nil {
		c.logger.Warn("Cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// Invalidate drops the cached profile of userID. It is best effort: failures
// are logged and reported as false.
func (c *ProfileCache) Invalidate(ctx context.Context, userID uuid.UUID) bool {
	if _, err := c.store.Del(ctx, ProfileKey(userID)); err != nil {
		c.metrics.Invalidation(false)
		c.logger.Warn("Failed to invalidate profile cache", zap.Stringer("user_id", userID), zap.Error(err))
		return false
	}
	c.metrics.Invalidation(true)
	return true
}

// InvalidateFriendsOf drops the cached friends lists that embed userID's
// profile, one per entry in friendIDs. Best effort, like Invalidate.
func (c *ProfileCache) InvalidateFriendsOf(ctx context.Context, userID uuid.UUID, friendIDs []uuid.UUID) bool {
	if len(friendIDs) == 0 {
		return true
	}
	keys := make([]string, 0, len(friendIDs))
	for _, id := range friendIDs {
		keys = append(keys, FriendsKey(id))
	}
	if _, err := c.store.Del(ctx, keys...); err != nil {
		c.metrics.Invalidation(false)
		c.logger.Warn("Failed to invalidate friends lists", zap.Stringer("user_id", userID),
			zap.Int("lists", len(keys)), zap.Error(err))
		return false
	}
	c.metrics.Invalidation(true)
	return true
}

// InvalidateUser drops every cached key belonging to userID across all
// namespaces. Best effort, like Invalidate.
func (c *ProfileCache) InvalidateUser(ctx context.Context, userID uuid.UUID) bool {
	removed, err := c.deleteUserKeys(ctx, userID)
	if err != nil {
		c.metrics.Invalidation(false)
		c.logger.Warn("Failed to invalidate user cache", zap.Stringer("user_id", userID), zap.Error(err))
		return false
	}
	c.metrics.Invalidation(true)
	if removed > 0 {
		c.logger.Debug("Invalidated cache entries", zap.Stringer("user_id", userID), zap.Int64("keys", removed))
	}
	return true
}

// deleteUserKeys scans incrementally, deleting each batch, until the cursor
// returns to zero.
func (c *ProfileCache) deleteUserKeys(ctx context.Context, userID uuid.UUID) (int64, error) {
	var removed int64
	var cursor uint64
	for {
		keys, next, err := c.store.Scan(ctx, cursor, userPattern(userID), scanCount)
		if err != nil {
			return removed, err
		}
		if len(keys) > 0 {
			n, err := c.store.Del(ctx, keys...)
			if err != nil {
				return removed, err
			}
			removed += n
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}

	// The profile key is the hottest one; make sure it is gone even if a
	// concurrent write landed behind the scan cursor.
	n, err := c.store.Del(ctx, ProfileKey(userID))
	if err != nil {
		return removed, err
	}
	return removed + n, nil
}

// ClearType removes one namespace of userID's cache, or all of them for
// "all" or "". It returns the number of keys removed.
func (c *ProfileCache) ClearType(ctx context.Context, userID uuid.UUID, cacheType string) (int64, error) {
	switch cacheType {
	case "", "all":
		n, err := c.deleteUserKeys(ctx, userID)
		if err != nil {
			return 0, apperr.Internal("clear user cache", err)
		}
		return n, nil
	case NamespaceProfile, NamespaceFriends, NamespacePosts, NamespaceFeed:
		n, err := c.store.Del(ctx, Key(cacheType, userID))
		if err != nil {
			return 0, apperr.Internal("clear "+cacheType+" cache", err)
		}
		return n, nil
	default:
		return 0, apperr.Validation(fmt.Sprintf("Unknown cache type %q", cacheType))
	}
}

type Status struct {
	Connected   bool              `json:"connected"`
	KeyCounts   map[string]int    `json:"cacheStats,omitempty"`
	ProfileKeys []string          `json:"keys,omitempty"`
	ServerInfo  map[string]string `json:"serverInfo,omitempty"`
	Error       string            `json:"error,omitempty"`
}

const statusUnreachable = "cache server unreachable"

var infoFields = []string{"redis_version", "redis_mode", "uptime_in_seconds", "connected_clients", "used_memory_human"}

// Status reports connectivity and key counts per namespace. It uses KEYS and
// is meant for diagnostics only.
func (c *ProfileCache) Status(ctx context.Context) Status {
	if err := c.store.Ping(ctx); err != nil {
		c.logger.Warn("Cache ping failed", zap.Error(err))
		return Status{Connected: false, Error: statusUnreachable}
	}

	status := Status{Connected: true, KeyCounts: map[string]int{}}
	for _, namespace := range []string{NamespaceProfile, NamespaceFriends, NamespacePosts, NamespaceFeed} {
		keys, err := c.store.Keys(ctx, namespace+":*")
		if err != nil {
			c.logger.Warn("Failed to count cache keys", zap.String("namespace", namespace), zap.Error(err))
			continue
		}
		status.KeyCounts[namespace] = len(keys)
		if namespace == NamespaceProfile {
			status.ProfileKeys = keys
		}
	}
	if all, err := c.store.Keys(ctx, "*"); err == nil {
		status.KeyCounts["total"] = len(all)
	}

	if raw, err := c.store.Info(ctx); err == nil {
		status.ServerInfo = parseInfo(raw)
	} else {
		c.logger.Warn("Failed to read cache server info", zap.Error(err))
	}
	return status
}

func parseInfo(raw string) map[string]string {
	all := map[string]string{}
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if k, v, ok := strings.Cut(line, ":"); ok {
			all[k] = v
		}
	}
	out := map[string]string{}
	for _, field := range infoFields {
		if v, ok := all[field]; ok {
			out[field] = v
		}
	}
	return out
}
