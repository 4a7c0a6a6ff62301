// Package credstore is the durable key-value store for session artifacts
// (token, user, role, auto-login flag, device id). Storage failures never
// propagate: they are logged and degrade to absent values or no-ops, so
// storage trouble can only ever make the client behave as logged out.
package credstore

import (
	"context"

	userdomain "al-ilm/companion/internal/user/domain"
)

// Key names one credential-store slot. The set is fixed.
type Key string

const (
	KeyToken        Key = "auth_token"
	KeyUser         Key = "auth_user"
	KeyRole         Key = "auth_role"
	KeyRefreshToken Key = "refresh_token"
	KeyAutoLogin    Key = "auto_login_enabled"
	KeyDeviceID     Key = "device_id"
)

// authKeys are the keys cleared when a session ends. The role and device id
// slots survive a logout; only ClearAllData touches the device id.
var authKeys = []Key{KeyToken, KeyUser, KeyRefreshToken, KeyAutoLogin}

// allKeys is every slot the store owns.
var allKeys = []Key{KeyToken, KeyUser, KeyRole, KeyRefreshToken, KeyAutoLogin, KeyDeviceID}

// AuthData is a point-in-time snapshot of the persisted session record.
// Absent slots are zero values; User is nil when absent or unparseable.
type AuthData struct {
	Token        string
	User         *userdomain.UserProfile
	Role         userdomain.Role
	RefreshToken string
	AutoLogin    bool
	DeviceID     string
}

// Update is a partial write: only non-nil fields are stored.
type Update struct {
	Token        *string
	User         *userdomain.UserProfile
	Role         *userdomain.Role
	RefreshToken *string
	AutoLogin    *bool
	DeviceID     *string
}

// Store is the durable credential store consumed by the session layer,
// the device identity provider, and the bootstrap orchestrator.
type Store interface {
	// Get returns the stored value for key, or "" when absent or on storage failure.
	Get(ctx context.Context, key Key) string
	// Set stores value under key. Failures are logged and dropped.
	Set(ctx context.Context, key Key, value string)
	// RemoveMany deletes the given keys. Missing keys are a no-op.
	RemoveMany(ctx context.Context, keys ...Key)
	// GetAuthData reads every slot concurrently and returns a snapshot.
	GetAuthData(ctx context.Context) AuthData
	// SetAuthData writes the provided fields concurrently.
	SetAuthData(ctx context.Context, u Update)
	// ClearAuthData removes the token, user, refresh token, and auto-login slots.
	ClearAuthData(ctx context.Context)
	// ClearAllData additionally removes the role and device id slots.
	ClearAllData(ctx context.Context)
}
