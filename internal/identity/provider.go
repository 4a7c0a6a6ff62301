// Package identity derives and caches the stable per-install device
// identifier used as the passwordless login credential.
package identity

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"al-ilm/companion/internal/credstore"
)

// Origin records which rung of the fallback chain produced the identifier.
type Origin string

const (
	// OriginStored means the identifier came from the credential store (a previous run produced it).
	OriginStored Origin = "stored"
	// OriginPlatform means the primary platform source produced it.
	OriginPlatform Origin = "platform-unique-id"
	// OriginPlatformFallback means the secondary platform source produced it.
	OriginPlatformFallback Origin = "platform-fallback-id"
	// OriginGenerated means both platform sources failed and a random identifier was synthesized.
	OriginGenerated Origin = "generated-random"
)

// DeviceIdentity is the stable install identifier plus its provenance.
type DeviceIdentity struct {
	Value  string
	Origin Origin
}

// Source yields a platform identifier. Implementations may fail; the
// provider walks its fallback chain on failure.
type Source interface {
	ID(ctx context.Context) (string, error)
}

// CredentialStore is the slice of the credential store the provider needs.
type CredentialStore interface {
	Get(ctx context.Context, key credstore.Key) string
	Set(ctx context.Context, key credstore.Key, value string)
}

// Provider resolves the device identity with an ordered fallback chain:
// cached value, primary platform source, secondary platform source,
// synthesized random id. Whatever a chain walk produces is persisted, so
// every later call returns the cached value without touching the sources.
type Provider struct {
	// Primary and Secondary are the platform sources, in preference order.
	Primary   Source
	Secondary Source

	store CredentialStore
	nowF  func() time.Time
}

// NewProvider returns a Provider using the platform machine id as primary
// source and a host-derived identifier as secondary.
func NewProvider(store CredentialStore) *Provider {
	return &Provider{
		Primary:   machineIDSource{},
		Secondary: hostSource{},
		store:     store,
		nowF:      time.Now,
	}
}

// DeviceID returns the stable device identifier. It never fails: in the
// worst case it returns a freshly generated identifier.
func (p *Provider) DeviceID(ctx context.Context) string {
	return p.Identity(ctx).Value
}

// Identity resolves the device identity, persisting it when it was not
// already cached.
func (p *Provider) Identity(ctx context.Context) DeviceIdentity {
	if cached := p.store.Get(ctx, credstore.KeyDeviceID); cached != "" {
		return DeviceIdentity{Value: cached, Origin: OriginStored}
	}

	id := p.resolve(ctx)
	p.store.Set(ctx, credstore.KeyDeviceID, id.Value)
	return id
}

func (p *Provider) resolve(ctx context.Context) DeviceIdentity {
	if p.Primary != nil {
		if v, err := p.Primary.ID(ctx); err == nil && v != "" {
			return DeviceIdentity{Value: v, Origin: OriginPlatform}
		}
	}
	if p.Secondary != nil {
		if v, err := p.Secondary.ID(ctx); err == nil && v != "" {
			return DeviceIdentity{Value: v, Origin: OriginPlatformFallback}
		}
	}
	return DeviceIdentity{Value: p.generate(), Origin: OriginGenerated}
}

// generate synthesizes "device_<unix-ms>_<random>"; the random component is
// a 9-character slice of a UUID with hyphens removed.
func (p *Provider) generate() string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("device_%d_%s", p.nowF().UnixMilli(), random)
}
