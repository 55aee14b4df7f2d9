package domain

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
)

// CodeChallengeMethodS256 is the only challenge method this server accepts.
// The plain method is rejected outright per OAuth 2.1.
const CodeChallengeMethodS256 = "S256"

// code_verifier length bounds from RFC 7636 §4.1
const (
	minVerifierLength = 43
	maxVerifierLength = 128
)

// ValidCodeVerifier reports whether the verifier satisfies the RFC 7636
// length and character constraints
func ValidCodeVerifier(verifier string) bool {
	if len(verifier) < minVerifierLength || len(verifier) > maxVerifierLength {
		return false
	}
	for _, c := range verifier {
		switch {
		case c >= 'A' && c <= 'Z':
		case c >= 'a' && c <= 'z':
		case c >= '0' && c <= '9':
		case c == '-' || c == '.' || c == '_' || c == '~':
		default:
			return false
		}
	}
	return true
}

// VerifyPKCE checks a code_verifier against the stored challenge. Only S256
// is accepted; the comparison is constant time.
func VerifyPKCE(codeVerifier, codeChallenge, method string) bool {
	if method != CodeChallengeMethodS256 || codeChallenge == "" {
		return false
	}
	if !ValidCodeVerifier(codeVerifier) {
		return false
	}
	hash := sha256.Sum256([]byte(codeVerifier))
	computed := base64.RawURLEncoding.EncodeToString(hash[:])
	return subtle.ConstantTimeCompare([]byte(computed), []byte(codeChallenge)) == 1
}
