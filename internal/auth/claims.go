package auth

import "time"

// ClientClaims are carried in a client token. UID is set while the client
// is signed in so its session survives a server restart.
type ClientClaims struct {
	ClientID string `json:"client_id"`
	UID      string `json:"uid,omitempty"`

	Issuer     string    `json:"iss"`
	Audience   string    `json:"aud"`
	Expiration time.Time `json:"exp"`
	IssuedAt   time.Time `json:"iat"`
	TokenID    string    `json:"jti"`
}
