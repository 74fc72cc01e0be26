package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	ErrTokenInvalid = errors.New("invalid download token")
	ErrTokenExpired = errors.New("download token expired")
)

// Token is the verified content of a download token.
type Token struct {
	JobID     string
	Key       string
	ExpiresAt time.Time
}

// SignedURLSigner mints and verifies HMAC-SHA256 download tokens of the form
// jobID.expiryUnix.base64(key).signature.
type SignedURLSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSignedURLSigner constructs a signer with the provided secret and TTL.
func NewSignedURLSigner(secret string, ttl time.Duration) *SignedURLSigner {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SignedURLSigner{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Sign returns a token for jobID granting access to key until now+ttl.
func (s *SignedURLSigner) Sign(jobID, key string) (string, time.Time, error) {
	if jobID == "" || key == "" {
		return "", time.Time{}, fmt.Errorf("sign token: job id and key required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("sign token: secret missing")
	}
	expiresAt := s.now().Add(s.ttl).Truncate(time.Second)
	payload := strings.Join([]string{jobID, strconv.FormatInt(expiresAt.Unix(), 10), base64.RawURLEncoding.EncodeToString([]byte(key))}, ".")
	return payload + "." + s.mac(payload), expiresAt, nil
}

// Verify checks the signature and, unless allowExpired, the expiry.
func (s *SignedURLSigner) Verify(raw string, allowExpired bool) (Token, error) {
	parts := strings.Split(raw, ".")
	if len(parts) != 4 {
		return Token{}, ErrTokenInvalid
	}
	payload := strings.Join(parts[:3], ".")
	if !hmac.Equal([]byte(s.mac(payload)), []byte(parts[3])) {
		return Token{}, ErrTokenInvalid
	}
	expUnix, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return Token{}, ErrTokenInvalid
	}
	key, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return Token{}, ErrTokenInvalid
	}
	tok := Token{JobID: parts[0], Key: string(key), ExpiresAt: time.Unix(expUnix, 0)}
	if !allowExpired && s.now().After(tok.ExpiresAt) {
		return tok, ErrTokenExpired
	}
	return tok, nil
}

func (s *SignedURLSigner) mac(payload string) string {
	h := hmac.New(sha256.New, s.secret)
	_, _ = h.Write([]byte(payload))
	return hex.EncodeToString(h.Sum(nil))
}
