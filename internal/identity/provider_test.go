package identity

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"al-ilm/companion/internal/credstore"
)

type memStore struct {
	mu sync.Mutex
	m  map[credstore.Key]string
}

func newMemStore() *memStore {
	return &memStore{m: make(map[credstore.Key]string)}
}

func (s *memStore) Get(ctx context.Context, key credstore.Key) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m[key]
}

func (s *memStore) Set(ctx context.Context, key credstore.Key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = value
}

type fakeSource struct {
	id    string
	err   error
	calls int
}

func (f *fakeSource) ID(ctx context.Context) (string, error) {
	f.calls++
	return f.id, f.err
}

func TestIdentity_PrimaryWins(t *testing.T) {
	store := newMemStore()
	p := NewProvider(store)
	p.Primary = &fakeSource{id: "machine-1"}
	p.Secondary = &fakeSource{id: "host-1"}

	id := p.Identity(context.Background())
	if id.Value != "machine-1" || id.Origin != OriginPlatform {
		t.Errorf("Identity = %+v, want machine-1/platform", id)
	}
	if got := store.Get(context.Background(), credstore.KeyDeviceID); got != "machine-1" {
		t.Errorf("persisted = %q, want machine-1", got)
	}
}

func TestIdentity_FallsBackToSecondary(t *testing.T) {
	store := newMemStore()
	p := NewProvider(store)
	p.Primary = &fakeSource{err: errors.New("boom")}
	p.Secondary = &fakeSource{id: "host-1"}

	id := p.Identity(context.Background())
	if id.Value != "host-1" || id.Origin != OriginPlatformFallback {
		t.Errorf("Identity = %+v, want host-1/platform-fallback", id)
	}
}

func TestIdentity_GeneratesWhenBothFail(t *testing.T) {
	store := newMemStore()
	p := NewProvider(store)
	p.Primary = &fakeSource{err: errors.New("boom")}
	p.Secondary = &fakeSource{err: errors.New("boom")}
	p.nowF = func() time.Time { return time.UnixMilli(1700000000000) }

	id := p.Identity(context.Background())
	if id.Origin != OriginGenerated {
		t.Fatalf("Origin = %q, want generated-random", id.Origin)
	}
	pattern := regexp.MustCompile(`^device_1700000000000_[a-f0-9]{9}$`)
	if !pattern.MatchString(id.Value) {
		t.Errorf("generated id %q does not match device_<timestamp>_<random>", id.Value)
	}
}

func TestIdentity_SecondCallUsesCacheWithoutSources(t *testing.T) {
	store := newMemStore()
	primary := &fakeSource{err: errors.New("boom")}
	secondary := &fakeSource{err: errors.New("boom")}
	p := NewProvider(store)
	p.Primary = primary
	p.Secondary = secondary

	first := p.Identity(context.Background())
	second := p.Identity(context.Background())

	if second.Value != first.Value {
		t.Errorf("second call = %q, want cached %q", second.Value, first.Value)
	}
	if second.Origin != OriginStored {
		t.Errorf("second Origin = %q, want stored", second.Origin)
	}
	if primary.calls != 1 || secondary.calls != 1 {
		t.Errorf("sources invoked again: primary=%d secondary=%d, want 1 each", primary.calls, secondary.calls)
	}
}
