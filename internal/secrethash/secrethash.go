// Package secrethash computes the per-application secret hash that
// authenticates calls made on behalf of a user pool app client.
package secrethash

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// Signer produces the SECRET_HASH value for a username.
type Signer interface {
	SecretHash(username string) string
}

// HMACSigner signs with HMAC-SHA256 keyed by the app client secret.
type HMACSigner struct {
	clientID     string
	clientSecret string
}

// NewHMACSigner returns a signer bound to one app client.
func NewHMACSigner(clientID, clientSecret string) *HMACSigner {
	return &HMACSigner{clientID: clientID, clientSecret: clientSecret}
}

// SecretHash returns base64(HMAC-SHA256(clientSecret, username+clientID)).
func (s *HMACSigner) SecretHash(username string) string {
	return Compute(s.clientSecret, username, s.clientID)
}

// Compute is the stateless form of SecretHash.
func Compute(clientSecret, username, clientID string) string {
	mac := hmac.New(sha256.New, []byte(clientSecret))
	mac.Write([]byte(username + clientID))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
