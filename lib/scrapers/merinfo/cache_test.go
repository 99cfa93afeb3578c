package merinfo

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPageCacheEvictsEarliestInserted(t *testing.T) {
	current := time.Unix(0, 0)
	cache := newPageCache(3, time.Hour)
	cache.now = func() time.Time { return current }

	for i := 0; i < 3; i++ {
		cache.set(fmt.Sprintf("key%d", i), []byte{byte(i)})
		current = current.Add(time.Second)
	}
	require.Equal(t, 3, cache.len())

	cache.set("key3", []byte{3})
	require.Equal(t, 3, cache.len())

	_, hit := cache.get("key0")
	require.False(t, hit)
	for i := 1; i <= 3; i++ {
		body, hit := cache.get(fmt.Sprintf("key%d", i))
		require.True(t, hit)
		require.Equal(t, []byte{byte(i)}, body)
	}
}

func TestPageCacheReadsDoNotPromote(t *testing.T) {
	current := time.Unix(0, 0)
	cache := newPageCache(2, time.Hour)
	cache.now = func() time.Time { return current }

	cache.set("old", []byte("a"))
	current = current.Add(time.Second)
	cache.set("new", []byte("b"))
	current = current.Add(time.Second)

	_, hit := cache.get("old")
	require.True(t, hit)

	cache.set("extra", []byte("c"))

	_, hit = cache.get("old")
	require.False(t, hit)
	_, hit = cache.get("new")
	require.True(t, hit)
	_, hit = cache.get("extra")
	require.True(t, hit)
}

func TestPageCacheExpiry(t *testing.T) {
	current := time.Unix(0, 0)
	cache := newPageCache(10, time.Minute)
	cache.now = func() time.Time { return current }

	cache.set("key", []byte("body"))

	current = current.Add(time.Second * 59)
	_, hit := cache.get("key")
	require.True(t, hit)

	current = current.Add(time.Second)
	_, hit = cache.get("key")
	require.False(t, hit)
	require.Equal(t, 0, cache.len())
}

func TestPageCacheOverwriteDoesNotEvict(t *testing.T) {
	cache := newPageCache(2, time.Hour)
	cache.set("a", []byte("1"))
	cache.set("b", []byte("2"))
	cache.set("a", []byte("3"))
	require.Equal(t, 2, cache.len())

	body, hit := cache.get("a")
	require.True(t, hit)
	require.Equal(t, []byte("3"), body)
	_, hit = cache.get("b")
	require.True(t, hit)
}
