package api

import (
	"context"
	"fmt"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/keepmind9/villabot/internal/logger"
	"github.com/keepmind9/villabot/internal/model"
	"github.com/keepmind9/villabot/pkg/constants"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// Lookup fetches the records a CachedDirectory resolves names from. *Client implements it.
type Lookup interface {
	GetMember(ctx context.Context, villaID, uid int64) (*model.Member, error)
	GetRoom(ctx context.Context, villaID, roomID int64) (*model.Room, error)
}

// CachedDirectory resolves member nicknames and room names for the outbound codec.
// Results are cached per villa and concurrent misses for the same key share one call.
type CachedDirectory struct {
	lookup Lookup
	sf     singleflight.Group
	names  *ttlcache.Cache[string, string]
}

// NewCachedDirectory creates a CachedDirectory. Non-positive ttl or capacity fall back to defaults.
func NewCachedDirectory(lookup Lookup, ttl time.Duration, capacity uint64) *CachedDirectory {
	if ttl <= 0 {
		ttl = constants.DefaultLookupTTL
	}
	if capacity == 0 {
		capacity = constants.DefaultLookupCapacity
	}
	cache := ttlcache.New(
		ttlcache.WithTTL[string, string](ttl),
		ttlcache.WithCapacity[string, string](capacity),
		ttlcache.WithDisableTouchOnHit[string, string](),
	)
	go cache.Start()

	return &CachedDirectory{lookup: lookup, names: cache}
}

// Close stops the cache expiry loop
func (d *CachedDirectory) Close() {
	d.names.Stop()
}

// MemberName returns the nickname of uid in villaID
func (d *CachedDirectory) MemberName(ctx context.Context, villaID, uid int64) (string, error) {
	return d.resolve(ctx, fmt.Sprintf("member:%d:%d", villaID, uid), func() (string, error) {
		member, err := d.lookup.GetMember(ctx, villaID, uid)
		if err != nil {
			return "", err
		}
		return member.Basic.Nickname, nil
	})
}

// RoomName returns the name of roomID in villaID
func (d *CachedDirectory) RoomName(ctx context.Context, villaID, roomID int64) (string, error) {
	return d.resolve(ctx, fmt.Sprintf("room:%d:%d", villaID, roomID), func() (string, error) {
		room, err := d.lookup.GetRoom(ctx, villaID, roomID)
		if err != nil {
			return "", err
		}
		return room.RoomName, nil
	})
}

// Invalidate drops every cached name
func (d *CachedDirectory) Invalidate() {
	d.names.DeleteAll()
}

func (d *CachedDirectory) resolve(ctx context.Context, key string, fetch func() (string, error)) (string, error) {
	if item := d.names.Get(key); item != nil {
		return item.Value(), nil
	}

	v, err, shared := d.sf.Do(key, func() (any, error) {
		// another caller may have filled the entry while we waited
		if item := d.names.Get(key); item != nil {
			return item.Value(), nil
		}
		name, err := fetch()
		if err != nil {
			return "", err
		}
		d.names.Set(key, name, ttlcache.DefaultTTL)
		return name, nil
	})
	if err != nil {
		logger.FromContext(ctx).WithFields(logrus.Fields{
			"key":   key,
			"error": err,
		}).Warn("name-lookup-failed")
		return "", err
	}
	if shared {
		logger.FromContext(ctx).WithField("key", key).Debug("name-lookup-shared")
	}
	return v.(string), nil
}
