package checkpoint

import (
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestNewRedisStore(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	defer client.Close()

	store := NewRedisStore(client, 0)
	if store.redis != client {
		t.Error("store redis client not set correctly")
	}
	if store.ttl != DefaultTTL {
		t.Errorf("ttl = %v, want DefaultTTL", store.ttl)
	}

	if got := NewRedisStore(client, time.Hour).ttl; got != time.Hour {
		t.Errorf("ttl = %v, want 1h", got)
	}
}

func TestNewRedisStore_Panic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("NewRedisStore should panic with nil redis client")
		}
	}()
	NewRedisStore(nil, time.Hour)
}
