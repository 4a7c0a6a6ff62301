// Package bootstrap runs the cold-start sequence: resolve the device
// identity, reconcile persisted credentials, sign in with the device id, and
// land the client in a definite state ("connected" or "disconnected mode")
// no matter what failed along the way.
package bootstrap

import (
	"context"
	"log"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"al-ilm/companion/internal/credstore"
	"al-ilm/companion/internal/identity"
	sessiondomain "al-ilm/companion/internal/session/domain"
	"al-ilm/companion/internal/telemetry"
	userdomain "al-ilm/companion/internal/user/domain"
)

// Status values reported by Run.
const (
	StatusConnected    = "connected"
	StatusDisconnected = "disconnected mode"
)

// Policy controls the bootstrap behavior.
type Policy struct {
	// AlwaysDeviceLogin runs a fresh device login on every cold start, even
	// when a valid persisted session exists. This mirrors the observed app
	// behavior; set false to restore a valid persisted session instead.
	AlwaysDeviceLogin bool
	// MinSplash is the minimum wall-clock duration of a Run call, so callers
	// displaying a splash state are not flashed away on fast starts.
	MinSplash time.Duration
}

// Result is the outcome of a bootstrap run.
type Result struct {
	Status  string
	Device  identity.DeviceIdentity
	Session sessiondomain.Session
}

// DeviceAuthenticator is the slice of the auth gateway the bootstrap needs.
type DeviceAuthenticator interface {
	LoginWithDeviceID(ctx context.Context, deviceID string) (*sessiondomain.AuthGrant, error)
}

// IdentityProvider resolves the stable device identity.
type IdentityProvider interface {
	Identity(ctx context.Context) identity.DeviceIdentity
}

// SessionStore is the slice of the session store the bootstrap drives.
type SessionStore interface {
	OnChange(func(sessiondomain.Session))
	SetToken(token string, user userdomain.UserProfile)
	ForceLogout(ctx context.Context)
	CheckAuthStatus(ctx context.Context)
	Current() sessiondomain.Session
}

// Orchestrator runs the bootstrap exactly once per process.
type Orchestrator struct {
	creds   credstore.Store
	ids     IdentityProvider
	gw      DeviceAuthenticator
	store   SessionStore
	emitter telemetry.EventEmitter
	policy  Policy

	nowF   func() time.Time
	sleepF func(time.Duration)

	once   sync.Once
	result Result
	err    error
}

// New returns an Orchestrator. emitter may be nil.
func New(creds credstore.Store, ids IdentityProvider, gw DeviceAuthenticator, store SessionStore, emitter telemetry.EventEmitter, policy Policy) *Orchestrator {
	return &Orchestrator{
		creds:   creds,
		ids:     ids,
		gw:      gw,
		store:   store,
		emitter: emitter,
		policy:  policy,
		nowF:    time.Now,
		sleepF:  time.Sleep,
	}
}

// Run executes the bootstrap sequence. It is idempotent: concurrent and
// repeated calls share the single run's result. Run only returns an error
// when the run was cancelled; every other failure degrades to
// "disconnected mode".
func (o *Orchestrator) Run(ctx context.Context) (Result, error) {
	o.once.Do(func() {
		o.result, o.err = o.run(ctx)
	})
	return o.result, o.err
}

func (o *Orchestrator) run(ctx context.Context) (Result, error) {
	started := o.nowF()

	tracer := otel.Tracer("companion.bootstrap")
	ctx, span := tracer.Start(ctx, "bootstrap.run")
	defer span.End()

	// The persistence listener mirrors every session transition into the
	// credential store, so commits made below (and any later login or
	// logout) are durable without the callers knowing about storage.
	o.store.OnChange(o.persist)

	device := o.ids.Identity(ctx)
	span.SetAttributes(
		attribute.String("device.id", device.Value),
		attribute.String("device.origin", string(device.Origin)),
	)

	// Informational only under the always-login policy: the stored session
	// does not gate the device login there.
	stored := o.creds.GetAuthData(ctx)
	if stored.Token != "" {
		log.Printf("bootstrap: found persisted session (user present: %t)", stored.User != nil)
	}

	// Restoration path: only taken when the policy allows it and the user
	// has not switched auto-login off.
	if !o.policy.AlwaysDeviceLogin && stored.AutoLogin {
		o.store.CheckAuthStatus(ctx)
		if sess := o.store.Current(); sess.IsAuthenticated {
			log.Printf("bootstrap: restored persisted session for %s", sess.User.Email)
			return o.finish(ctx, span, started, StatusConnected, device), nil
		}
	}

	grant, err := o.gw.LoginWithDeviceID(ctx, device.Value)
	if err != nil {
		if ctx.Err() != nil {
			o.cleanup(span, err)
			return Result{}, err
		}
		log.Printf("bootstrap: device login failed, continuing unauthenticated: %v", err)
		return o.finish(ctx, span, started, StatusDisconnected, device), nil
	}

	o.store.SetToken(grant.Token, grant.User)
	log.Printf("bootstrap: signed in as %s", grant.User.Email)
	return o.finish(ctx, span, started, StatusConnected, device), nil
}

// persist mirrors a session transition into the credential store. An
// authenticated session is written whole (with auto-login re-enabled); any
// other state clears the session slots. The role and device id slots are
// never touched here.
func (o *Orchestrator) persist(sess sessiondomain.Session) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if sess.IsAuthenticated && sess.Token != "" && sess.User != nil {
		autoLogin := true
		role := sess.User.Role
		o.creds.SetAuthData(ctx, credstore.Update{
			Token:     &sess.Token,
			User:      sess.User,
			Role:      &role,
			AutoLogin: &autoLogin,
		})
		return
	}
	if !sess.IsLoading {
		o.creds.ClearAuthData(ctx)
	}
}

// cleanup is the critical-failure path: remove the session slots that could
// replay a broken session and force the in-memory state to anonymous.
func (o *Orchestrator) cleanup(span trace.Span, cause error) {
	span.RecordError(cause)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	o.creds.RemoveMany(ctx, credstore.KeyToken, credstore.KeyUser, credstore.KeyRefreshToken)
	o.store.ForceLogout(ctx)
}

func (o *Orchestrator) finish(ctx context.Context, span trace.Span, started time.Time, status string, device identity.DeviceIdentity) Result {
	if remaining := o.policy.MinSplash - o.nowF().Sub(started); remaining > 0 {
		o.sleepF(remaining)
	}
	span.SetAttributes(attribute.String("bootstrap.status", status))

	meter := otel.Meter("companion.bootstrap")
	statusAttr := metric.WithAttributes(attribute.String("status", status))
	if counter, err := meter.Int64Counter("bootstrap.runs"); err == nil {
		counter.Add(ctx, 1, statusAttr)
	}
	if hist, err := meter.Float64Histogram("bootstrap.duration", metric.WithUnit("s")); err == nil {
		hist.Record(ctx, o.nowF().Sub(started).Seconds(), statusAttr)
	}

	sess := o.store.Current()
	event := &telemetry.Event{
		EventType: "bootstrap_completed",
		DeviceID:  device.Value,
		Source:    "bootstrap",
		Metadata: map[string]string{
			"status":        status,
			"device_origin": string(device.Origin),
		},
		CreatedAt: o.nowF().UTC(),
	}
	if sess.User != nil {
		event.UserID = sess.User.ID
	}
	telemetry.EmitAsync(o.emitter, ctx, event)

	return Result{Status: status, Device: device, Session: sess}
}
