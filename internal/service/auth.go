package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/anticlanker/anticlanker/internal/keystore"
	"github.com/anticlanker/anticlanker/internal/model"
	"github.com/anticlanker/anticlanker/internal/secret"
)

// ErrInvalidCredentials covers every verification failure: unknown identity,
// wrong secret, and revoked credential. Callers translate it to a single
// indistinguishable 401.
var ErrInvalidCredentials = errors.New("invalid credentials")

// SecretBytes is the entropy, in bytes, of generated key secrets.
const SecretBytes = 32

// AuthService owns credential issuance and verification against the
// keystore. Lookup is by claimed identity, so each authentication costs one
// indexed read plus a single argon2 verification instead of a scan over
// every stored digest.
type AuthService struct {
	store *keystore.Store
}

func NewAuthService(store *keystore.Store) *AuthService {
	return &AuthService{store: store}
}

// MintKey creates a named API credential and returns the record together
// with the plaintext secret. The plaintext is shown exactly once; only its
// argon2id digest is persisted.
func (s *AuthService) MintKey(ctx context.Context, name string, projects model.Projects, role, notes string) (*model.Credential, string, error) {
	plaintext, err := secret.Generate(SecretBytes)
	if err != nil {
		return nil, "", err
	}
	digest, err := secret.Hash(plaintext)
	if err != nil {
		return nil, "", err
	}

	cred := &model.Credential{
		Name:       name,
		SecretHash: digest,
		Role:       model.NormalizeRole(role),
		Projects:   projects,
		Notes:      notes,
	}
	if err := s.store.CreateCredential(ctx, cred); err != nil {
		return nil, "", err
	}
	return cred, plaintext, nil
}

// ListKeys returns the metadata view of every credential. Digests and
// plaintext never appear in the output, only a short preview for
// identification.
func (s *AuthService) ListKeys(ctx context.Context) ([]model.KeyListing, error) {
	creds, err := s.store.ListCredentials(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]model.KeyListing, len(creds))
	for i, c := range creds {
		listing := model.KeyListing{
			Name:        c.Name,
			HashPreview: HashPreview(c.SecretHash),
			Role:        c.Role,
			Projects:    c.Projects,
			Notes:       c.Notes,
			Revoked:     c.Revoked,
			CreatedAt:   c.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		}
		if c.LastUsed != nil {
			listing.LastUsed = c.LastUsed.UTC().Format("2006-01-02T15:04:05Z07:00")
		}
		out[i] = listing
	}
	return out, nil
}

// RevokeKey permanently invalidates a credential by name. Returns
// keystore.ErrNotFound for unknown or already-revoked names.
func (s *AuthService) RevokeKey(ctx context.Context, name string) error {
	return s.store.RevokeCredential(ctx, name)
}

// VerifyKey authenticates a claimed identity against its plaintext secret.
// The claimed name is not a security boundary on its own, the digest check
// still decides; it only selects which single record to verify. Revoked
// records never verify, even with the correct secret.
func (s *AuthService) VerifyKey(ctx context.Context, name, plaintext string) (*model.Credential, error) {
	cred, err := s.store.GetCredentialByName(ctx, name)
	if err != nil {
		if errors.Is(err, keystore.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if cred.Revoked {
		return nil, ErrInvalidCredentials
	}

	ok, err := secret.Verify(plaintext, cred.SecretHash)
	if err != nil {
		return nil, fmt.Errorf("verify credential %q: %w", name, err)
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	// Stamp last_used without blocking or failing the request.
	go s.store.TouchCredential(context.Background(), cred.Name) //nolint:errcheck

	return cred, nil
}

// VerifyKeyUnclaimed authenticates a plaintext with no claimed identity by
// scanning every active credential. Kept for callers that can only send the
// secret; the cost grows with the table, so claimed-identity verification is
// the preferred path.
func (s *AuthService) VerifyKeyUnclaimed(ctx context.Context, plaintext string) (*model.Credential, error) {
	creds, err := s.store.ListCredentials(ctx)
	if err != nil {
		return nil, err
	}
	for i := range creds {
		cred := &creds[i]
		if cred.Revoked {
			continue
		}
		ok, err := secret.Verify(plaintext, cred.SecretHash)
		if err != nil {
			return nil, fmt.Errorf("verify credential %q: %w", cred.Name, err)
		}
		if ok {
			go s.store.TouchCredential(context.Background(), cred.Name) //nolint:errcheck
			return cred, nil
		}
	}
	return nil, ErrInvalidCredentials
}

// VerifyAdmin authenticates the plaintext against the single admin
// credential. No identity is needed since there is at most one. A store
// that was never bootstrapped fails verification the same way a wrong
// secret does.
func (s *AuthService) VerifyAdmin(ctx context.Context, plaintext string) (*model.AdminCredential, error) {
	admin, err := s.store.GetAdminCredential(ctx)
	if err != nil {
		if errors.Is(err, keystore.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	ok, err := secret.Verify(plaintext, admin.SecretHash)
	if err != nil {
		return nil, fmt.Errorf("verify admin credential: %w", err)
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}
	return admin, nil
}

// Authorize reports whether a verified credential may act on the requested
// project. Empty and wildcard scopes admit any project, including none at
// all; a restricted scope requires the project to be named.
func (s *AuthService) Authorize(cred *model.Credential, project string) bool {
	if cred.Projects.Unrestricted() {
		return true
	}
	if project == "" {
		return false
	}
	return cred.Projects.Contains(project)
}

// HashPreview shortens a stored digest for display in listings: enough to
// tell records apart, never enough to attack.
func HashPreview(digest string) string {
	if len(digest) <= 14 {
		return digest
	}
	return digest[:8] + "..." + digest[len(digest)-6:]
}
