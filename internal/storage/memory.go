package storage

import "sort"

// Memory is an in-memory Namespace with the same quota semantics as the
// SQLite implementation. Used by tests and ephemeral runs.
type Memory struct {
	capacity int64
	slots    map[string]string
	failSet  bool
}

// NewMemory returns an empty in-memory namespace. capacity 0 means
// unlimited.
func NewMemory(capacity int64) *Memory {
	return &Memory{capacity: capacity, slots: make(map[string]string)}
}

// FailWrites makes every subsequent Set return ErrQuotaExceeded,
// regardless of size. Tests use it to exercise the emergency save path.
func (m *Memory) FailWrites(fail bool) {
	m.failSet = fail
}

func (m *Memory) Get(key string) (string, bool, error) {
	v, ok := m.slots[key]
	return v, ok, nil
}

func (m *Memory) Set(key, value string) error {
	if m.failSet {
		return ErrQuotaExceeded
	}
	if m.capacity > 0 {
		var used int64
		for k, v := range m.slots {
			if k == key {
				continue
			}
			used += int64(len(k) + len(v))
		}
		if used+int64(len(key))+int64(len(value)) > m.capacity {
			return ErrQuotaExceeded
		}
	}
	m.slots[key] = value
	return nil
}

func (m *Memory) Delete(key string) error {
	delete(m.slots, key)
	return nil
}

func (m *Memory) Keys() ([]string, error) {
	keys := make([]string, 0, len(m.slots))
	for k := range m.slots {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *Memory) UsedBytes() (int64, error) {
	var used int64
	for k, v := range m.slots {
		used += int64(len(k) + len(v))
	}
	return used, nil
}

func (m *Memory) Close() error { return nil }
