// Package token implements the bearer-token codec: a three-segment,
// dot-separated token (header.payload.signature) with independently
// base64-encoded segments. The payload carries the principal's identity,
// role, permission set, and tenant, so the edge gate can authorize a
// request without any storage lookup.
//
// Decode deliberately does NOT verify the signature segment -- the gate
// treats "valid" as "well-formed and unexpired". Real integrity checking is
// available via Verify and is wired behind configuration; see the gate.
package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"

	"github.com/keyxmakerx/gatehouse/internal/rbac"
)

// DefaultTTL is the lifetime of an issued token.
const DefaultTTL = 24 * time.Hour

// header is the fixed first segment of every token.
var header = []byte(`{"alg":"HS256","typ":"JWT"}`)

// Claims is the token payload. Field names match the wire format exactly;
// iat and exp are epoch seconds.
type Claims struct {
	Sub         string    `json:"sub"`
	Email       string    `json:"email"`
	Role        rbac.Role `json:"role"`
	Permissions []string  `json:"permissions"`
	TenantID    string    `json:"tenantId"`
	Iat         int64     `json:"iat"`
	Exp         int64     `json:"exp"`
}

// Expired reports whether the claims' expiry is at or before now.
func (c *Claims) Expired(now time.Time) bool {
	return c.Exp*1000 <= now.UnixMilli()
}

// Codec encodes and decodes bearer tokens. The zero value is not usable;
// construct with NewCodec.
type Codec struct {
	secret []byte
	ttl    time.Duration

	// now is replaceable in tests.
	now func() time.Time
}

// NewCodec creates a Codec signing with the given secret and issuing tokens
// with the given ttl. A non-positive ttl falls back to DefaultTTL.
func NewCodec(secret string, ttl time.Duration) *Codec {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Codec{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Encode serializes the given identity into a signed three-segment token.
// Iat and Exp on the input are ignored; they are always set to now and
// now+ttl respectively.
func (c *Codec) Encode(claims Claims) (string, error) {
	now := c.now().Unix()
	claims.Iat = now
	claims.Exp = now + int64(c.ttl.Seconds())
	if claims.Permissions == nil {
		claims.Permissions = []string{}
	}

	payload, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}

	head := base64.RawURLEncoding.EncodeToString(header)
	body := base64.RawURLEncoding.EncodeToString(payload)
	sig := c.sign(head + "." + body)

	return head + "." + body + "." + sig, nil
}

// Decode parses a token and returns its claims, or nil if the token is
// malformed: wrong segment count, undecodable payload, or payload that is
// not a JSON claims object. Decode never returns an error and never panics;
// callers treat nil exactly like an absent token.
//
// The signature segment is NOT checked here. Use Verify for that.
func (c *Codec) Decode(tok string) *Claims {
	parts := strings.Split(tok, ".")
	if len(parts) != 3 {
		return nil
	}

	payload, err := decodeSegment(parts[1])
	if err != nil {
		return nil
	}

	var claims Claims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil
	}
	return &claims
}

// Verify reports whether the token's signature segment matches an HMAC-SHA256
// over the first two segments under the codec's secret. Tokens minted by a
// codec with a different secret (or by the legacy placeholder signer) fail.
func (c *Codec) Verify(tok string) bool {
	parts := strings.Split(tok, ".")
	if len(parts) != 3 {
		return false
	}
	expected := c.sign(parts[0] + "." + parts[1])
	return hmac.Equal([]byte(expected), []byte(parts[2]))
}

// sign computes the base64url HMAC-SHA256 signature of signingInput.
func (c *Codec) sign(signingInput string) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(signingInput))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// decodeSegment decodes a token segment. Tokens minted here use unpadded
// base64url, but tokens from older issuers used standard padded base64, so
// both alphabets are accepted.
func decodeSegment(seg string) ([]byte, error) {
	if b, err := base64.RawURLEncoding.DecodeString(seg); err == nil {
		return b, nil
	}
	if b, err := base64.StdEncoding.DecodeString(seg); err == nil {
		return b, nil
	}
	return base64.RawStdEncoding.DecodeString(seg)
}
