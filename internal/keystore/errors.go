package keystore

import "errors"

// ErrNotFound is returned when a requested record does not exist in the
// store, including revoking an identity that is unknown or already revoked.
var ErrNotFound = errors.New("not found")

// ErrDuplicateName is returned when creating a credential whose name already
// exists, revoked or not. Identities are never recycled.
var ErrDuplicateName = errors.New("credential name already exists")
