package ports

import "context"

// CredentialStore is the durable home of the raw credential. It outlives a
// single page load (cookie) or process (Redis).
type CredentialStore interface {
	// Load returns domain.ErrNoCredential when nothing is stored.
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, credential string) error
	// Clear is idempotent.
	Clear(ctx context.Context) error
}
