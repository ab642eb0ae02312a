// Package token mints and validates resolution tokens.
//
// A token binds a resolved filter to the schema it was resolved against,
// the dictionary version, the resolution status and a content hash of the
// resolved tree, and expires ten minutes after minting. The wire form is
//
//	base64url( json( payload + {"signature": hex-hmac-sha256} ) )
//
// where the HMAC covers the sorted-key JSON of the payload alone, laid out
// exactly as signingJSON writes it. expires_at is fractional Unix seconds.
package token

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/roach88/semfilter/internal/filterir"
)

const (
	// TTL is how long a minted token stays valid.
	TTL = 10 * time.Minute

	// MinSecretLength is the shortest accepted signing secret, in bytes.
	MinSecretLength = 32
)

// Payload is the signed content of a token.
type Payload struct {
	SchemaSignature      string          `json:"schema_signature"`
	CanonicalDictVersion string          `json:"canonical_dict_version"`
	ResolvedSpecHash     string          `json:"resolved_spec_hash"`
	ResolutionStatus     filterir.Status `json:"resolution_status"`
	ExpiresAt            float64         `json:"expires_at"`
}

// Expiry returns ExpiresAt as a time, to the microsecond.
func (p Payload) Expiry() time.Time {
	return time.UnixMicro(int64(math.Round(p.ExpiresAt * 1e6)))
}

// unixSeconds is t as fractional Unix seconds at microsecond precision.
func unixSeconds(t time.Time) float64 {
	return float64(t.UnixMicro()) / 1e6
}

func (p Payload) fields() map[string]any {
	return map[string]any{
		"schema_signature":       p.SchemaSignature,
		"canonical_dict_version": p.CanonicalDictVersion,
		"resolved_spec_hash":     p.ResolvedSpecHash,
		"resolution_status":      string(p.ResolutionStatus),
		"expires_at":             p.ExpiresAt,
	}
}

// Signer mints and verifies tokens with one secret. A Signer is safe for
// concurrent use.
type Signer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// Option configures a Signer.
type Option func(*Signer)

// WithClock replaces time.Now, for tests and replay.
func WithClock(now func() time.Time) Option {
	return func(s *Signer) { s.now = now }
}

// WithTTL overrides the token lifetime. Used by tests that need a token
// to expire quickly; production code keeps TTL.
func WithTTL(ttl time.Duration) Option {
	return func(s *Signer) { s.ttl = ttl }
}

// ErrSecretTooShort is returned by NewSigner for secrets under
// MinSecretLength bytes.
var ErrSecretTooShort = fmt.Errorf("token secret must be at least %d bytes", MinSecretLength)

// NewSigner creates a Signer. The secret is copied.
func NewSigner(secret []byte, opts ...Option) (*Signer, error) {
	if len(secret) < MinSecretLength {
		return nil, ErrSecretTooShort
	}
	s := &Signer{
		secret: append([]byte(nil), secret...),
		ttl:    TTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Mint signs a token for p. ExpiresAt is set from the signer's clock; any
// value in p is ignored.
func (s *Signer) Mint(p Payload) (string, Payload, error) {
	p.ExpiresAt = unixSeconds(s.now().Add(s.ttl))

	fields := p.fields()
	sig, err := s.sign(fields)
	if err != nil {
		return "", Payload{}, err
	}
	fields["signature"] = sig

	data, err := wireJSON(fields)
	if err != nil {
		return "", Payload{}, fmt.Errorf("encode token: %w", err)
	}
	return base64.URLEncoding.EncodeToString(data), p, nil
}

func (s *Signer) sign(fields map[string]any) (string, error) {
	data, err := signingJSON(fields)
	if err != nil {
		return "", fmt.Errorf("encode token payload: %w", err)
	}
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(data)
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// Decode checks a token's encoding and signature and returns its payload.
// It does not check expiry or any binding.
func (s *Signer) Decode(tok string) (Payload, error) {
	if tok == "" {
		return Payload{}, fail(ReasonMissing, "no resolution token")
	}

	data, err := base64.URLEncoding.DecodeString(tok)
	if err != nil {
		return Payload{}, fail(ReasonMalformed, "token is not base64url")
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil || fields == nil {
		return Payload{}, fail(ReasonMalformed, "token is not a JSON object")
	}

	rawSig, ok := fields["signature"]
	if !ok {
		return Payload{}, fail(ReasonSignatureMissing, "token carries no signature")
	}
	sig, ok := rawSig.(string)
	if !ok {
		return Payload{}, fail(ReasonMalformed, "token signature is not a string")
	}
	delete(fields, "signature")

	want, err := s.sign(fields)
	if err != nil {
		return Payload{}, fail(ReasonMalformed, "token payload cannot be re-encoded for signing")
	}
	if !hmac.Equal([]byte(sig), []byte(want)) {
		return Payload{}, fail(ReasonSignatureInvalid, "token signature does not verify")
	}

	p, err := payloadFrom(fields)
	if err != nil {
		return Payload{}, err
	}
	return p, nil
}

func payloadFrom(fields map[string]any) (Payload, error) {
	str := func(key string) (string, error) {
		v, ok := fields[key].(string)
		if !ok {
			return "", fail(ReasonMalformed, fmt.Sprintf("token field %s is missing or not a string", key))
		}
		return v, nil
	}

	var p Payload
	var err error
	if p.SchemaSignature, err = str("schema_signature"); err != nil {
		return Payload{}, err
	}
	if p.CanonicalDictVersion, err = str("canonical_dict_version"); err != nil {
		return Payload{}, err
	}
	if p.ResolvedSpecHash, err = str("resolved_spec_hash"); err != nil {
		return Payload{}, err
	}
	status, err := str("resolution_status")
	if err != nil {
		return Payload{}, err
	}
	p.ResolutionStatus = filterir.Status(status)

	n, ok := fields["expires_at"].(json.Number)
	if !ok {
		return Payload{}, fail(ReasonMalformed, "token field expires_at is missing or not a number")
	}
	if p.ExpiresAt, err = n.Float64(); err != nil || math.IsInf(p.ExpiresAt, 0) {
		return Payload{}, fail(ReasonMalformed, "token field expires_at is not a finite number")
	}
	return p, nil
}

// Expectation lists what a token must be bound to. Empty string fields are
// not checked.
type Expectation struct {
	SchemaSignature string
	SpecHash        string
	DictVersion     string
	Status          filterir.Status
}

// Verify validates tok against want. Checks run in a fixed order:
// decoding, signature, expiry, schema signature, spec hash, dictionary
// version, status. The first failure is returned as a *filterir.Error whose
// Reason names the check.
func (s *Signer) Verify(tok string, want Expectation) (Payload, error) {
	p, err := s.Decode(tok)
	if err != nil {
		return Payload{}, err
	}
	if unixSeconds(s.now()) >= p.ExpiresAt {
		return Payload{}, fail(ReasonExpired, "token expired")
	}
	if want.SchemaSignature != "" && p.SchemaSignature != want.SchemaSignature {
		return Payload{}, fail(ReasonSchemaMismatch, "token was issued for a different schema")
	}
	if want.SpecHash != "" && p.ResolvedSpecHash != want.SpecHash {
		return Payload{}, fail(ReasonSpecHashMismatch, "filter does not match the tree the token was issued for")
	}
	if want.DictVersion != "" && p.CanonicalDictVersion != want.DictVersion {
		return Payload{}, fail(ReasonDictVersionMismatch, "token was issued under a different dictionary version")
	}
	if want.Status != "" && p.ResolutionStatus != want.Status {
		return Payload{}, fail(ReasonStatusMismatch, fmt.Sprintf("token status is %s, need %s", p.ResolutionStatus, want.Status))
	}
	return p, nil
}
