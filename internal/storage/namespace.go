package storage

import "context"

type namespaced struct {
	inner  Backend
	prefix string
}

// Namespace scopes every key of b under prefix, so one physical backend can
// hold many clients' stores.
func Namespace(b Backend, prefix string) Backend {
	if prefix == "" {
		return b
	}
	return &namespaced{inner: b, prefix: prefix}
}

func (n *namespaced) Get(ctx context.Context, key string) ([]byte, error) {
	return n.inner.Get(ctx, n.prefix+key)
}

func (n *namespaced) Set(ctx context.Context, key string, value []byte) error {
	return n.inner.Set(ctx, n.prefix+key, value)
}

func (n *namespaced) Delete(ctx context.Context, key string) error {
	return n.inner.Delete(ctx, n.prefix+key)
}

func (n *namespaced) DeletePrefix(ctx context.Context, prefix string) error {
	return n.inner.DeletePrefix(ctx, n.prefix+prefix)
}
