package status

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// capturingHook swallows pipelines instead of sending them to a server.
type capturingHook struct {
	cmds []redis.Cmder
	err  error
}

func (h *capturingHook) DialHook(next redis.DialHook) redis.DialHook          { return next }
func (h *capturingHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook { return next }
func (h *capturingHook) ProcessPipelineHook(redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(_ context.Context, cmds []redis.Cmder) error {
		h.cmds = append(h.cmds, cmds...)
		return h.err
	}
}

func newCapturedRedisSink(t *testing.T, cfg RedisConfig) (*RedisSink, *capturingHook) {
	t.Helper()
	cfg.Addr = "127.0.0.1:0"
	client := redis.NewClient(redisOptions(cfg))
	t.Cleanup(func() { _ = client.Close() })
	hook := &capturingHook{}
	client.AddHook(hook)
	return newRedisSink(client, cfg), hook
}

func TestRedisSink_HSetThenPublish(t *testing.T) {
	sink, hook := newCapturedRedisSink(t, RedisConfig{Key: "tank:status", Channel: "tank:updates"})

	if err := sink.Show(context.Background(), sampleSnapshot()); err != nil {
		t.Fatalf("Show() err=%v", err)
	}
	if len(hook.cmds) != 2 {
		t.Fatalf("pipeline had %d commands, want 2", len(hook.cmds))
	}

	hset := hook.cmds[0].Args()
	if hook.cmds[0].Name() != "hset" || hset[1] != "tank:status" {
		t.Fatalf("first command = %v", hset)
	}
	fields := map[string]string{}
	for i := 2; i+1 < len(hset); i += 2 {
		fields[fmt.Sprint(hset[i])] = fmt.Sprint(hset[i+1])
	}
	for k, v := range Encode(sampleSnapshot()) {
		if fields[k] != fmt.Sprint(v) {
			t.Fatalf("hash field %q = %q, want %v", k, fields[k], v)
		}
	}

	pub := hook.cmds[1].Args()
	if hook.cmds[1].Name() != "publish" || pub[1] != "tank:updates" {
		t.Fatalf("second command = %v", pub)
	}
	payload, ok := pub[2].([]byte)
	if !ok {
		t.Fatalf("payload type %T", pub[2])
	}
	var got map[string]interface{}
	if err := json.Unmarshal(payload, &got); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if got["valve_position"] != float64(130) || got["mode"] != "running" {
		t.Fatalf("payload = %v", got)
	}
}

func TestRedisSink_DefaultsAndErrors(t *testing.T) {
	sink, hook := newCapturedRedisSink(t, RedisConfig{})
	if sink.key != "tidevalve" || sink.channel != "tidevalve" {
		t.Fatalf("key=%q channel=%q", sink.key, sink.channel)
	}

	hook.err = errors.New("connection reset")
	err := sink.Show(context.Background(), sampleSnapshot())
	if !errors.Is(err, hook.err) {
		t.Fatalf("Show() err=%v, want wrapped connection error", err)
	}
}

func TestRedisOptions_BoundEveryCall(t *testing.T) {
	opt := redisOptions(RedisConfig{Addr: "redis:6379"})
	for name, d := range map[string]time.Duration{
		"dial": opt.DialTimeout, "read": opt.ReadTimeout, "write": opt.WriteTimeout, "pool": opt.PoolTimeout,
	} {
		if d != 100*time.Millisecond {
			t.Fatalf("%s timeout = %v", name, d)
		}
	}
	if opt.MaxRetries != -1 || !opt.ContextTimeoutEnabled {
		t.Fatalf("retries=%d context timeouts=%v", opt.MaxRetries, opt.ContextTimeoutEnabled)
	}
	if got := redisOptions(RedisConfig{Timeout: time.Second}).ReadTimeout; got != time.Second {
		t.Fatalf("configured timeout ignored: %v", got)
	}
}
