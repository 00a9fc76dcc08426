package store

// ReadMap is the read-only surface of a store.
type ReadMap[V any] interface {
	Get(key string) (V, error)
	ContainsKey(key string) bool
	Size() int
	KeySet() map[string]struct{}
	Keys() []string
	Stats() Stats
}

// Map is the full map-style surface of a store.
type Map[V any] interface {
	ReadMap[V]
	Put(key string, v V) error
	Remove(key string) (V, error)
	Clear()
	Erase() error
}

var _ Map[[]byte] = (*Store[[]byte])(nil)
