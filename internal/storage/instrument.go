package storage

import (
	"context"
	"errors"
)

// ErrorObserver counts failing local storage operations.
type ErrorObserver interface {
	ObserveMirrorError(backend, op string)
}

// Instrument reports every failing LocalStorage call of p to obs.
func Instrument(p Provider, obs ErrorObserver) Provider {
	if obs == nil {
		return p
	}
	return &instrumented{Provider: p, obs: obs}
}

type instrumented struct {
	Provider
	obs ErrorObserver
}

func (p *instrumented) Open(jar CookieJar, device string) LocalStorage {
	return &observedStorage{next: p.Provider.Open(jar, device), backend: p.Name(), obs: p.obs}
}

type observedStorage struct {
	next    LocalStorage
	backend string
	obs     ErrorObserver
}

func (s *observedStorage) GetItem(ctx context.Context, key string) (string, bool, error) {
	v, ok, err := s.next.GetItem(ctx, key)
	s.report("get", err)
	return v, ok, err
}

func (s *observedStorage) SetItem(ctx context.Context, key, value string) error {
	err := s.next.SetItem(ctx, key, value)
	s.report("set", err)
	return err
}

func (s *observedStorage) RemoveItem(ctx context.Context, key string) error {
	err := s.next.RemoveItem(ctx, key)
	s.report("remove", err)
	return err
}

func (s *observedStorage) report(op string, err error) {
	if err == nil {
		return
	}
	var se *StorageError
	if errors.As(err, &se) && se.Op != "" {
		op = se.Op
	}
	s.obs.ObserveMirrorError(s.backend, op)
}
