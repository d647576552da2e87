package models

import (
	"encoding/base64"
	"log/slog"
)

// AccessToken is an opaque credential for a RemoteService. It is stored
// base64-encoded and must never be logged or displayed: its String/
// GoString forms are redacted, matching how models.User excludes
// PinHash from its MarshalJSON.
type AccessToken struct {
	raw []byte
}

// NewAccessToken wraps the raw credential bytes as held in memory.
func NewAccessToken(raw []byte) AccessToken {
	return AccessToken{raw: append([]byte(nil), raw...)}
}

// Encode returns the base64 (standard encoding) representation for storage.
func (t AccessToken) Encode() string {
	return base64.StdEncoding.EncodeToString(t.raw)
}

// DecodeAccessToken parses a base64-encoded credential back into an AccessToken.
func DecodeAccessToken(encoded string) (AccessToken, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{raw: raw}, nil
}

// Raw returns the underlying credential bytes. Callers must not log them.
func (t AccessToken) Raw() []byte {
	return append([]byte(nil), t.raw...)
}

// IsZero reports whether the token holds no credential.
func (t AccessToken) IsZero() bool { return len(t.raw) == 0 }

// String redacts the credential so it is safe to pass to fmt/log call sites.
func (t AccessToken) String() string {
	if t.IsZero() {
		return "AccessToken(empty)"
	}
	return "AccessToken(redacted)"
}

// GoString redacts the credential in %#v formatting too.
func (t AccessToken) GoString() string { return t.String() }

// LogValue implements slog.LogValuer so the credential is redacted
// whenever an AccessToken ends up as a log attribute.
func (t AccessToken) LogValue() slog.Value {
	return slog.StringValue(t.String())
}
