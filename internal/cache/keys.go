package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	ResourceKeyPrefix = "resource:%d"
	PackageKeyPrefix  = "package:%s"
	UserKeyPrefix     = "user:%d"
)

const (
	ResourceTTL = 5 * time.Minute
	PackageTTL  = 5 * time.Minute
	UserTTL     = 5 * time.Minute
)

func ResourceKey(resourceID uint) string {
	return fmt.Sprintf(ResourceKeyPrefix, resourceID)
}

func PackageKey(slug string) string {
	return fmt.Sprintf(PackageKeyPrefix, slug)
}

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

func InvalidateResource(ctx context.Context, resourceID uint) {
	Invalidate(ctx, ResourceKey(resourceID))
}

func InvalidatePackage(ctx context.Context, slug string) {
	Invalidate(ctx, PackageKey(slug))
}

func InvalidateUser(ctx context.Context, userID uint) {
	Invalidate(ctx, UserKey(userID))
}
