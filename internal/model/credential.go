package model

import (
	"strings"
	"time"
)

// Credential role values. Roles are advisory metadata used for listing and
// audit output; they do not gate any route. Route access is decided by the
// admin-key vs API-key distinction plus project scope.
const (
	RoleUser    = "user"
	RoleService = "service"
	RoleAdmin   = "admin"
)

// ProjectWildcard marks a credential as unrestricted across projects.
const ProjectWildcard = "*"

// Credential is a named API credential. The raw secret is never stored; only
// an argon2id digest is persisted, and the plaintext is returned to the
// caller exactly once at creation time.
type Credential struct {
	ID         int64      `json:"-" db:"id"`
	Name       string     `json:"name" db:"name"`
	SecretHash string     `json:"-" db:"secret_hash"` // argon2id digest, never expose
	Role       string     `json:"role" db:"role"`
	Projects   Projects   `json:"projects"`
	Notes      string     `json:"notes,omitempty" db:"notes"`
	Revoked    bool       `json:"revoked" db:"revoked"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	LastUsed   *time.Time `json:"last_used,omitempty" db:"last_used"`
}

// AdminCredential is the single distinguished credential that gates key
// lifecycle and model management. It is provisioned out-of-band through the
// CLI before the server starts, never through the HTTP API.
type AdminCredential struct {
	Name       string    `json:"name" db:"name"`
	SecretHash string    `json:"-" db:"secret_hash"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// Projects is a credential's project allow-list. An empty list or a list
// containing the wildcard places no restriction on the credential.
type Projects []string

// ParseProjects normalizes project slugs from a comma separated string or a
// string list. Entries are trimmed and de-duplicated case-insensitively with
// the original casing of the first occurrence preserved. If the wildcard
// appears anywhere the result collapses to just the wildcard so a scope can
// never mix "*" with specific entries.
func ParseProjects(value interface{}) Projects {
	var candidates []string
	switch v := value.(type) {
	case nil:
		return nil
	case string:
		candidates = strings.Split(v, ",")
	case []string:
		candidates = v
	case []interface{}:
		for _, item := range v {
			if s, ok := item.(string); ok {
				candidates = append(candidates, s)
			}
		}
	default:
		return nil
	}

	var out Projects
	seen := make(map[string]bool)
	for _, c := range candidates {
		p := strings.TrimSpace(c)
		if p == "" {
			continue
		}
		if p == ProjectWildcard {
			return Projects{ProjectWildcard}
		}
		lower := strings.ToLower(p)
		if seen[lower] {
			continue
		}
		seen[lower] = true
		out = append(out, p)
	}
	return out
}

// Unrestricted reports whether the scope places no project restriction,
// either because it is empty or because it contains the wildcard.
func (p Projects) Unrestricted() bool {
	if len(p) == 0 {
		return true
	}
	for _, v := range p {
		if v == ProjectWildcard {
			return true
		}
	}
	return false
}

// Contains reports whether the scope permits the given project. Comparison
// is case-insensitive, matching how slugs are de-duplicated at parse time.
func (p Projects) Contains(project string) bool {
	for _, v := range p {
		if strings.EqualFold(v, project) {
			return true
		}
	}
	return false
}

// NormalizeRole coerces arbitrary input to one of the known role values,
// defaulting to RoleUser.
func NormalizeRole(role string) string {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case RoleService:
		return RoleService
	case RoleAdmin:
		return RoleAdmin
	default:
		return RoleUser
	}
}
