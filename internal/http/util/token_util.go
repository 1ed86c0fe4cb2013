package util

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidToken  = errors.New("invalid or expired token")
	ErrMissingSecret = errors.New("token secret is not configured")
)

// TokenSigner mints and validates compact HMAC bearer tokens that identify a
// link owner. This is the seam toward the (external) auth system: anything
// able to mint a valid token is trusted to name the owner.
type TokenSigner struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenSigner returns a signer that issues owner tokens with the given TTL.
func NewTokenSigner(secret []byte, ttl time.Duration) *TokenSigner {
	return &TokenSigner{
		secret: secret,
		ttl:    ttl,
	}
}

// Issue mints a token for the provided owner id.
func (s *TokenSigner) Issue(ownerID string) (string, error) {
	if len(s.secret) == 0 {
		return "", ErrMissingSecret
	}
	if ownerID == "" {
		return "", errors.New("owner id must not be empty")
	}

	payload := make([]byte, 4+len(ownerID))
	expires := uint32(time.Now().Add(s.ttl).Unix())
	binary.BigEndian.PutUint32(payload[:4], expires)
	copy(payload[4:], ownerID)

	payloadEnc := base64.RawURLEncoding.EncodeToString(payload)
	signature := s.sign(payload)
	sigEnc := base64.RawURLEncoding.EncodeToString(signature[:16])
	return fmt.Sprintf("%s.%s", payloadEnc, sigEnc), nil
}

// Validate checks signature integrity and TTL and returns the embedded owner id.
func (s *TokenSigner) Validate(token string) (string, error) {
	if len(s.secret) == 0 {
		return "", ErrMissingSecret
	}

	parts := strings.SplitN(token, ".", 2)
	if len(parts) != 2 {
		return "", ErrInvalidToken
	}

	payload, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil || len(payload) <= 4 {
		return "", ErrInvalidToken
	}

	sig, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return "", ErrInvalidToken
	}

	expected := s.sign(payload)
	if !hmac.Equal(sig, expected[:16]) {
		return "", ErrInvalidToken
	}

	expires := binary.BigEndian.Uint32(payload[:4])
	if time.Now().Unix() > int64(expires) {
		return "", ErrInvalidToken
	}

	return string(payload[4:]), nil
}

func (s *TokenSigner) sign(payload []byte) [sha256.Size]byte {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(payload)
	var out [sha256.Size]byte
	copy(out[:], mac.Sum(nil))
	return out
}
