package domain

import "strings"

// Scopes understood by this server
const (
	ScopeOpenID  = "openid"
	ScopeProfile = "profile"
	ScopeEmail   = "email"
	ScopeRoles   = "roles"
)

// ScopeDetail carries friendly scope information for the consent screen
type ScopeDetail struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

var scopeDescriptions = map[string]string{
	ScopeOpenID:  "Confirm your identity",
	ScopeProfile: "Read your name, company and job title",
	ScopeEmail:   "Read your email address",
	ScopeRoles:   "Read your platform roles",
}

// KnownScope reports whether the scope is recognised by this server
func KnownScope(scope string) bool {
	_, ok := scopeDescriptions[scope]
	return ok
}

// DescribeScopes returns consent screen details for the given scopes
func DescribeScopes(scopes []string) []ScopeDetail {
	details := make([]ScopeDetail, 0, len(scopes))
	for _, s := range scopes {
		details = append(details, ScopeDetail{Name: s, Description: scopeDescriptions[s]})
	}
	return details
}

// ParseScopes splits a space-delimited scope string, dropping duplicates
// while preserving order
func ParseScopes(scope string) []string {
	fields := strings.Fields(scope)
	seen := make(map[string]struct{}, len(fields))
	scopes := make([]string, 0, len(fields))
	for _, s := range fields {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		scopes = append(scopes, s)
	}
	return scopes
}

// FormatScopes joins scopes into the space-delimited wire form
func FormatScopes(scopes []string) string {
	return strings.Join(scopes, " ")
}

// ScopesCovered reports whether every requested scope is present in granted
func ScopesCovered(granted, requested []string) bool {
	set := make(map[string]struct{}, len(granted))
	for _, s := range granted {
		set[s] = struct{}{}
	}
	for _, s := range requested {
		if _, ok := set[s]; !ok {
			return false
		}
	}
	return true
}

// UnionScopes merges two scope sets, preserving the order of first appearance
func UnionScopes(a, b []string) []string {
	merged := make([]string, 0, len(a)+len(b))
	seen := make(map[string]struct{}, len(a)+len(b))
	for _, s := range append(append([]string{}, a...), b...) {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		merged = append(merged, s)
	}
	return merged
}

// ContainsScope reports whether the scope set contains the given scope
func ContainsScope(scopes []string, scope string) bool {
	for _, s := range scopes {
		if s == scope {
			return true
		}
	}
	return false
}
