package ds

import "sync"

// Map is a map guarded by a RWMutex.
type Map[K comparable, V any] struct {
	mu sync.RWMutex
	m  map[K]V
}

func NewMap[K comparable, V any](initSize int) *Map[K, V] {
	return &Map[K, V]{m: make(map[K]V, initSize)}
}

func (m *Map[K, V]) Load(k K) (v V, ok bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok = m.m[k]
	return v, ok
}

func (m *Map[K, V]) Store(k K, v V) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.m[k] = v
}

func (m *Map[K, V]) Delete(k K) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.m, k)
}

func (m *Map[K, V]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.m)
}

// Range calls f on a snapshot taken under the read lock, so f may modify m.
func (m *Map[K, V]) Range(f func(K, V) bool) {
	m.mu.RLock()
	ks := make([]K, 0, len(m.m))
	vs := make([]V, 0, len(m.m))
	for k, v := range m.m {
		ks = append(ks, k)
		vs = append(vs, v)
	}
	m.mu.RUnlock()
	for i := range ks {
		if !f(ks[i], vs[i]) {
			break
		}
	}
}
