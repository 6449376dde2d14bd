package debounce

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"classroom-access-backend/config"
)

func TestMemory_Allow(t *testing.T) {
	ctx := context.Background()
	d := NewMemory(50 * time.Millisecond)

	ok, err := d.Allow(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = d.Allow(ctx, "a")
	assert.False(t, ok, "repeat inside the window")

	ok, _ = d.Allow(ctx, "b")
	assert.True(t, ok, "other keys are independent")

	time.Sleep(80 * time.Millisecond)
	ok, _ = d.Allow(ctx, "a")
	assert.True(t, ok, "window elapsed")
}

func TestNoop_Allow(t *testing.T) {
	for i := 0; i < 3; i++ {
		ok, err := Noop{}.Allow(context.Background(), "a")
		require.NoError(t, err)
		assert.True(t, ok)
	}
}

func TestRedis_UnreachableFailsOpen(t *testing.T) {
	client := NewRedisClient("127.0.0.1:1")
	defer client.Close()
	d := NewRedis(client, time.Second)

	ok, err := d.Allow(context.Background(), "a")
	assert.Error(t, err)
	assert.True(t, ok)
	assert.False(t, d.Healthy(context.Background()))
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.DebounceConfig
		want    any
		wantErr bool
	}{
		{"none", config.DebounceConfig{Backend: "none"}, Noop{}, false},
		{"memory", config.DebounceConfig{Backend: "memory", Window: time.Second}, &Memory{}, false},
		{"default", config.DebounceConfig{Window: time.Second}, &Memory{}, false},
		{"redis", config.DebounceConfig{Backend: "redis", RedisAddr: "127.0.0.1:6379", Window: time.Second}, &Redis{}, false},
		{"redis without addr", config.DebounceConfig{Backend: "redis"}, nil, true},
		{"unknown", config.DebounceConfig{Backend: "etcd"}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := New(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, d)
		})
	}
}

func TestKey(t *testing.T) {
	assert.Equal(t, "rfid|04A1B2C3|1|outside", Key("rfid", "04A1B2C3", int64(1), "outside"))
}
