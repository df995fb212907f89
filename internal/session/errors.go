package session

import (
	"errors"

	"github.com/geocoder89/dmdash/internal/storage"
	"github.com/geocoder89/dmdash/internal/userdir"
)

const (
	KindLoginFailed       = "login_failed"
	KindMalformedResponse = "malformed_response"
	KindNetworkError      = "network_error"
	KindStorageError      = "storage_error"
	KindUnknown           = "unknown"
)

// Kind names the error class of a session operation failure.
func Kind(err error) string {
	var netErr *userdir.NetworkError

	switch {
	case errors.Is(err, userdir.ErrLoginFailed):
		return KindLoginFailed
	case errors.Is(err, userdir.ErrMalformedResponse):
		return KindMalformedResponse
	case errors.As(err, &netErr):
		return KindNetworkError
	case errors.Is(err, storage.ErrStorage):
		return KindStorageError
	default:
		return KindUnknown
	}
}

func asStorage(backend, op string, err error) error {
	if errors.Is(err, storage.ErrStorage) {
		return err
	}
	return &storage.StorageError{Backend: backend, Op: op, Err: err}
}
