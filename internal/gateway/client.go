// Package gateway is the network boundary of the auth subsystem: stateless
// request/response calls that exchange credentials (password or device id)
// for a session, and maintain it (me, refresh, logout).
package gateway

import (
	"context"
	"net/http"

	"al-ilm/companion/internal/httpapi"
	sessiondomain "al-ilm/companion/internal/session/domain"
	userdomain "al-ilm/companion/internal/user/domain"
)

// Client calls the platform auth endpoints through the request wrapper.
type Client struct {
	api *httpapi.Client
}

// NewClient returns a gateway over the given API client.
func NewClient(api *httpapi.Client) *Client {
	return &Client{api: api}
}

// authResponse is the wire shape of a successful token exchange.
type authResponse struct {
	Token string                 `json:"token"`
	User  userdomain.UserProfile `json:"utilisateur"`
}

type passwordCredentials struct {
	Email    string `json:"email"`
	Password string `json:"motDePasse"`
}

type deviceCredentials struct {
	PhoneID string `json:"phoneId"`
}

// LoginWithPassword exchanges email/password for a session. A non-2xx
// response surfaces as *httpapi.APIError carrying the server's message.
func (c *Client) LoginWithPassword(ctx context.Context, email, password string) (*sessiondomain.AuthGrant, error) {
	return c.exchange(ctx, passwordCredentials{Email: email, Password: password})
}

// LoginWithDeviceID exchanges the device identifier for a session. The server
// auto-provisions or recognizes the device-bound account.
func (c *Client) LoginWithDeviceID(ctx context.Context, deviceID string) (*sessiondomain.AuthGrant, error) {
	return c.exchange(ctx, deviceCredentials{PhoneID: deviceID})
}

func (c *Client) exchange(ctx context.Context, credentials any) (*sessiondomain.AuthGrant, error) {
	var resp authResponse
	err := c.api.DoJSON(ctx, "/api/auth/token", httpapi.Options{
		Method: http.MethodPost,
		Body:   credentials,
		Public: true,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &sessiondomain.AuthGrant{Token: resp.Token, User: resp.User}, nil
}

// Logout asks the server to invalidate the current session. Callers treat
// this as best-effort and proceed with local teardown regardless.
func (c *Client) Logout(ctx context.Context) error {
	return c.api.DoJSON(ctx, "/api/auth/logout", httpapi.Options{Method: http.MethodPost}, nil)
}

// CurrentUser returns the profile bound to the current token.
func (c *Client) CurrentUser(ctx context.Context) (*userdomain.UserProfile, error) {
	var u userdomain.UserProfile
	if err := c.api.Get(ctx, "/api/auth/me", &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Refresh exchanges the current token for a fresh one.
func (c *Client) Refresh(ctx context.Context) (*sessiondomain.AuthGrant, error) {
	var resp authResponse
	err := c.api.DoJSON(ctx, "/api/auth/refresh", httpapi.Options{Method: http.MethodPost}, &resp)
	if err != nil {
		return nil, err
	}
	return &sessiondomain.AuthGrant{Token: resp.Token, User: resp.User}, nil
}
