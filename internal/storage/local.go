package storage

import "context"

// LocalStorage is a small per-browser key/value store, the server-side
// counterpart of window.localStorage.
type LocalStorage interface {
	GetItem(ctx context.Context, key string) (string, bool, error)
	SetItem(ctx context.Context, key, value string) error
	RemoveItem(ctx context.Context, key string) error
}

// Provider opens the local storage of one browser. device is the stable
// per-browser id; jar is the cookie store of the current request.
type Provider interface {
	Name() string
	Open(jar CookieJar, device string) LocalStorage
}

// keyed adapts a namespaced backend into a LocalStorage bound to one device.
type keyed struct {
	backend string
	device  string
	get     func(ctx context.Context, k string) (string, bool, error)
	set     func(ctx context.Context, k, v string) error
	del     func(ctx context.Context, k string) error
}

func (s *keyed) key(item string) string {
	return "dm:ls:" + s.device + ":" + item
}

func (s *keyed) GetItem(ctx context.Context, key string) (string, bool, error) {
	v, ok, err := s.get(ctx, s.key(key))
	return v, ok, wrap(s.backend, "get", err)
}

func (s *keyed) SetItem(ctx context.Context, key, value string) error {
	return wrap(s.backend, "set", s.set(ctx, s.key(key), value))
}

func (s *keyed) RemoveItem(ctx context.Context, key string) error {
	return wrap(s.backend, "remove", s.del(ctx, s.key(key)))
}
