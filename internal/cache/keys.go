package cache

import (
	"context"
	"strconv"
	"time"
)

// Cached entities and how long a copy may live. Writers invalidate
// explicitly, so the TTL only bounds staleness from a missed invalidation.
const (
	UserTTL = 5 * time.Minute
	PostTTL = 30 * time.Minute
)

// UserKey holds the /auth/me view of a user with profile.
func UserKey(userID uint) string { return "user:" + strconv.FormatUint(uint64(userID), 10) }

// PostKey holds the anonymous view of a post; viewer-specific views
// (liked flags) are never cached.
func PostKey(postID uint) string { return "post:" + strconv.FormatUint(uint64(postID), 10) }

// Invalidate drops keys. Failures are counted by the client hook and
// otherwise ignored: the TTL caps the damage.
func Invalidate(ctx context.Context, keys ...string) {
	if client == nil || len(keys) == 0 {
		return
	}
	client.Del(ctx, keys...)
}

func InvalidateUser(ctx context.Context, userID uint) { Invalidate(ctx, UserKey(userID)) }
func InvalidatePost(ctx context.Context, postID uint) { Invalidate(ctx, PostKey(postID)) }
