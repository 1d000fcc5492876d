package auth

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Header and payload claim names as they appear on the wire.
const (
	claimAlgorithm = "alg"
	claimType      = "typ"
	claimSubject   = "sub"
	claimIssuedAt  = "iat"
	claimExpiresAt = "exp"
	claimRevision  = "rev"
)

var segmentEncoding = base64.RawURLEncoding.Strict()

// EncodeSegment serializes m as compact JSON (keys sorted) and returns its
// unpadded URL-safe base64 form.
func EncodeSegment(m map[string]any) (string, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return segmentEncoding.EncodeToString(raw), nil
}

// EncodeSignature encodes raw MAC output as a segment.
func EncodeSignature(sig []byte) string {
	return segmentEncoding.EncodeToString(sig)
}

// DecodeSignature returns the raw bytes carried by a signature segment.
func DecodeSignature(segment string) ([]byte, error) {
	return decodeRaw(segment)
}

// DecodeHeader parses a header segment. The header must carry exactly the alg
// and typ keys, both strings.
func DecodeHeader(segment string) (TokenHeader, error) {
	fields, err := decodeObject(segment)
	if err != nil {
		return TokenHeader{}, err
	}
	if len(fields) != 2 {
		return TokenHeader{}, fmt.Errorf("%w: header has %d keys", ErrTokenMalformed, len(fields))
	}

	var h TokenHeader
	if err := requireField(fields, claimAlgorithm, &h.Algorithm); err != nil {
		return TokenHeader{}, err
	}
	if err := requireField(fields, claimType, &h.Type); err != nil {
		return TokenHeader{}, err
	}
	return h, nil
}

// DecodePayload parses a payload segment. Unknown keys are ignored; the four
// known claims are required and must have the right JSON types.
func DecodePayload(segment string) (TokenPayload, error) {
	fields, err := decodeObject(segment)
	if err != nil {
		return TokenPayload{}, err
	}

	var p TokenPayload
	if err := requireField(fields, claimSubject, &p.Subject); err != nil {
		return TokenPayload{}, err
	}
	if err := requireField(fields, claimIssuedAt, &p.IssuedAt); err != nil {
		return TokenPayload{}, err
	}
	if err := requireField(fields, claimExpiresAt, &p.ExpiresAt); err != nil {
		return TokenPayload{}, err
	}
	if err := requireField(fields, claimRevision, &p.SubjectRevision); err != nil {
		return TokenPayload{}, err
	}
	if p.Subject == "" {
		return TokenPayload{}, fmt.Errorf("%w: empty subject", ErrTokenMalformed)
	}
	if p.ExpiresAt <= p.IssuedAt {
		return TokenPayload{}, fmt.Errorf("%w: exp not after iat", ErrTokenMalformed)
	}
	return p, nil
}

func decodeObject(segment string) (map[string]json.RawMessage, error) {
	raw, err := decodeRaw(segment)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}
	if fields == nil {
		return nil, fmt.Errorf("%w: segment is not an object", ErrTokenMalformed)
	}
	return fields, nil
}

// decodeRaw only accepts the URL-safe alphabet; the stdlib decoder would
// otherwise skip embedded CR/LF.
func decodeRaw(segment string) ([]byte, error) {
	if segment == "" {
		return nil, fmt.Errorf("%w: empty segment", ErrTokenMalformed)
	}
	for i := 0; i < len(segment); i++ {
		if !isSegmentByte(segment[i]) {
			return nil, fmt.Errorf("%w: invalid segment byte at %d", ErrTokenMalformed, i)
		}
	}
	raw, err := segmentEncoding.DecodeString(segment)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}
	return raw, nil
}

func isSegmentByte(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func requireField(fields map[string]json.RawMessage, key string, dst any) error {
	raw, ok := fields[key]
	if !ok {
		return fmt.Errorf("%w: missing %q", ErrTokenMalformed, key)
	}
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return fmt.Errorf("%w: null %q", ErrTokenMalformed, key)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: bad %q: %v", ErrTokenMalformed, key, err)
	}
	return nil
}
