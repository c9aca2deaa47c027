package cache

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// fakeClient emulates the two cache scripts over a map. Unused Scripter methods panic.
type fakeClient struct {
	redis.Scripter
	data map[string]string
	ttls map[string]time.Duration
	runs [][]string
	err  error
}

func newFakeClient() *fakeClient {
	return &fakeClient{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeClient) Get(_ context.Context, key string) *redis.StringCmd {
	if f.err != nil {
		return redis.NewStringResult("", f.err)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeClient) EvalSha(_ context.Context, sha string, keys []string, args ...interface{}) *redis.Cmd {
	if f.err != nil {
		return redis.NewCmdResult(nil, f.err)
	}
	f.runs = append(f.runs, keys)
	gen, ok := f.data[keys[0]]
	if !ok {
		gen = "0"
	}

	switch sha {
	case setIfGenerationScript.Hash():
		if gen != args[0].(string) {
			return redis.NewCmdResult(int64(0), nil)
		}
		f.data[keys[1]] = string(args[1].([]byte))
		f.ttls[keys[1]] = time.Duration(args[2].(int64)) * time.Millisecond
		return redis.NewCmdResult(int64(1), nil)
	case invalidateScript.Hash():
		n, _ := strconv.ParseInt(gen, 10, 64)
		n++
		f.data[keys[0]] = strconv.FormatInt(n, 10)
		f.ttls[keys[0]] = time.Duration(args[0].(int64)) * time.Millisecond
		delete(f.data, keys[1])
		return redis.NewCmdResult(n, nil)
	}
	return redis.NewCmdResult(nil, fmt.Errorf("unknown script %s", sha))
}

func mustSet(t *testing.T, c *SlotCache, day string, slots []time.Time) {
	t.Helper()
	gen, err := c.Generation(context.Background(), day)
	if err != nil {
		t.Fatalf("Generation error: %v", err)
	}
	stored, err := c.Set(context.Background(), day, gen, slots)
	if err != nil || !stored {
		t.Fatalf("Set = (%v, %v), want stored", stored, err)
	}
}

func TestSlotCache_RoundTripAndTTL(t *testing.T) {
	rdb := newFakeClient()
	c := NewSlotCache(rdb, time.Minute, "")

	slots := []time.Time{
		time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC),
		time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC),
	}
	mustSet(t, c, "2025-07-01", slots)
	if rdb.ttls["appointmate:slots:{2025-07-01}"] != time.Minute {
		t.Fatalf("ttl = %v, want 1m", rdb.ttls["appointmate:slots:{2025-07-01}"])
	}

	got, ok, err := c.Get(context.Background(), "2025-07-01")
	if err != nil || !ok {
		t.Fatalf("Get = (%v, %v), want hit", ok, err)
	}
	if len(got) != 2 || !got[0].Equal(slots[0]) || !got[1].Equal(slots[1]) {
		t.Fatalf("Get = %v, want %v", got, slots)
	}
}

func TestSlotCache_EmptyListIsAHit(t *testing.T) {
	c := NewSlotCache(newFakeClient(), 0, "test")
	mustSet(t, c, "2025-07-05", nil)
	got, ok, err := c.Get(context.Background(), "2025-07-05")
	if err != nil || !ok || len(got) != 0 {
		t.Fatalf("Get = (%v, %v, %v), want empty hit", got, ok, err)
	}
}

func TestSlotCache_Miss(t *testing.T) {
	c := NewSlotCache(newFakeClient(), 0, "")
	_, ok, err := c.Get(context.Background(), "2025-07-01")
	if err != nil || ok {
		t.Fatalf("Get = (%v, %v), want clean miss", ok, err)
	}
}

func TestSlotCache_CorruptEntry(t *testing.T) {
	rdb := newFakeClient()
	rdb.data["appointmate:slots:{2025-07-01}"] = "not json"
	c := NewSlotCache(rdb, 0, "")
	if _, _, err := c.Get(context.Background(), "2025-07-01"); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestSlotCache_InvalidateDeduplicates(t *testing.T) {
	rdb := newFakeClient()
	c := NewSlotCache(rdb, 0, "")

	if err := c.Invalidate(context.Background(), "2025-07-01", "2025-07-01", "2025-07-02"); err != nil {
		t.Fatalf("Invalidate error: %v", err)
	}
	want := [][]string{
		{"appointmate:slots:{2025-07-01}:gen", "appointmate:slots:{2025-07-01}"},
		{"appointmate:slots:{2025-07-02}:gen", "appointmate:slots:{2025-07-02}"},
	}
	if !reflect.DeepEqual(rdb.runs, want) {
		t.Fatalf("runs = %v, want %v", rdb.runs, want)
	}
	if rdb.ttls["appointmate:slots:{2025-07-01}:gen"] != generationTTL {
		t.Fatalf("generation ttl = %v, want %v", rdb.ttls["appointmate:slots:{2025-07-01}:gen"], generationTTL)
	}

	if err := c.Invalidate(context.Background()); err != nil {
		t.Fatalf("Invalidate() error: %v", err)
	}
	if len(rdb.runs) != 2 {
		t.Fatalf("empty Invalidate ran a script")
	}
}

func TestSlotCache_InvalidateDropsEntryAndBumpsGeneration(t *testing.T) {
	c := NewSlotCache(newFakeClient(), 0, "")
	mustSet(t, c, "2025-07-01", []time.Time{time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)})

	if err := c.Invalidate(context.Background(), "2025-07-01"); err != nil {
		t.Fatalf("Invalidate error: %v", err)
	}
	if _, ok, _ := c.Get(context.Background(), "2025-07-01"); ok {
		t.Fatalf("entry survived invalidation")
	}
	gen, err := c.Generation(context.Background(), "2025-07-01")
	if err != nil || gen != 1 {
		t.Fatalf("Generation = (%d, %v), want 1", gen, err)
	}
}

func TestSlotCache_SetRejectsListingFromOlderGeneration(t *testing.T) {
	ctx := context.Background()
	c := NewSlotCache(newFakeClient(), 0, "")

	gen, err := c.Generation(ctx, "2025-07-01")
	if err != nil {
		t.Fatalf("Generation error: %v", err)
	}
	// A booking commits while the listing is being computed.
	if err := c.Invalidate(ctx, "2025-07-01"); err != nil {
		t.Fatalf("Invalidate error: %v", err)
	}

	stale := []time.Time{time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)}
	stored, err := c.Set(ctx, "2025-07-01", gen, stale)
	if err != nil {
		t.Fatalf("Set error: %v", err)
	}
	if stored {
		t.Fatalf("Set stored a listing computed before the invalidation")
	}
	if _, ok, _ := c.Get(ctx, "2025-07-01"); ok {
		t.Fatalf("stale listing is cached")
	}
}

func TestSlotCache_PropagatesRedisErrors(t *testing.T) {
	boom := errors.New("connection refused")
	rdb := newFakeClient()
	rdb.err = boom
	c := NewSlotCache(rdb, 0, "")

	if _, _, err := c.Get(context.Background(), "2025-07-01"); !errors.Is(err, boom) {
		t.Fatalf("Get error = %v, want %v", err, boom)
	}
	if _, err := c.Generation(context.Background(), "2025-07-01"); !errors.Is(err, boom) {
		t.Fatalf("Generation error = %v, want %v", err, boom)
	}
	if _, err := c.Set(context.Background(), "2025-07-01", 0, nil); !errors.Is(err, boom) {
		t.Fatalf("Set error = %v, want %v", err, boom)
	}
	if err := c.Invalidate(context.Background(), "2025-07-01"); !errors.Is(err, boom) {
		t.Fatalf("Invalidate error = %v, want %v", err, boom)
	}
}
