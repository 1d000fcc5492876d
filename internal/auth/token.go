package auth

import "strings"

const (
	// AlgorithmHS256 is the only signing algorithm the verifier accepts.
	AlgorithmHS256 = "HS256"
	// TokenTypeAuth marks a segment triple as an access token.
	TokenTypeAuth = "auth"

	separator = "."
)

// TokenHeader is the logical form of the first segment.
type TokenHeader struct {
	Algorithm string
	Type      string
}

func (h TokenHeader) claims() map[string]any {
	return map[string]any{
		claimAlgorithm: h.Algorithm,
		claimType:      h.Type,
	}
}

// TokenPayload is the logical form of the second segment. Timestamps are
// integer seconds since the Unix epoch.
type TokenPayload struct {
	Subject         string
	IssuedAt        int64
	ExpiresAt       int64
	SubjectRevision int64
}

func (p TokenPayload) claims() map[string]any {
	return map[string]any{
		claimSubject:   p.Subject,
		claimIssuedAt:  p.IssuedAt,
		claimExpiresAt: p.ExpiresAt,
		claimRevision:  p.SubjectRevision,
	}
}

// Token is a signed segment triple. The server keeps no record of issued tokens.
type Token struct {
	Header    string
	Payload   string
	Signature string
}

// String joins the segments into the transport form.
func (t Token) String() string {
	return t.Header + separator + t.Payload + separator + t.Signature
}

// SplitToken breaks a transport string into exactly three non-empty segments.
func SplitToken(s string) (Token, bool) {
	parts := strings.Split(s, separator)
	if len(parts) != 3 {
		return Token{}, false
	}
	for _, p := range parts {
		if p == "" {
			return Token{}, false
		}
	}
	return Token{Header: parts[0], Payload: parts[1], Signature: parts[2]}, true
}

func signingInput(header, payload string) string {
	return header + separator + payload
}
