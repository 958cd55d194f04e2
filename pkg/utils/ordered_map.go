package utils

import "encoding/json"

// MapEntry pairs a key with its value, used to seed an OrderedMap in a given
// order (e.g. sorted by key) without going through a plain Go map first.
type MapEntry[K comparable, V any] struct {
	Key   K
	Value V
}

// OrderedMap behaves like a map[K]V but remembers insertion order, so that
// iterating it (via Entries) always visits keys in the same sequence. This
// matters for the Jack lowerer: class/subroutine iteration order feeds label
// mangling counters, and a plain Go map would make the generated VM code
// non-deterministic across runs of the same input.
type OrderedMap[K comparable, V any] struct {
	index map[K]int
	items []MapEntry[K, V]
}

// NewOrderedMapFromList builds an OrderedMap preserving the given slice's order.
// Later entries with a duplicate key overwrite earlier ones in place.
func NewOrderedMapFromList[K comparable, V any](entries []MapEntry[K, V]) OrderedMap[K, V] {
	om := OrderedMap[K, V]{index: map[K]int{}}
	for _, entry := range entries {
		om.Set(entry.Key, entry.Value)
	}
	return om
}

// Set inserts or updates the value for 'key', preserving the original position
// of the key on update (so re-setting a key does not move it in Entries order).
func (om *OrderedMap[K, V]) Set(key K, value V) {
	if om.index == nil {
		om.index = map[K]int{}
	}

	if pos, found := om.index[key]; found {
		om.items[pos].Value = value
		return
	}

	om.index[key] = len(om.items)
	om.items = append(om.items, MapEntry[K, V]{Key: key, Value: value})
}

// Get looks up the value for 'key', mirroring the comma-ok idiom of a plain map.
func (om *OrderedMap[K, V]) Get(key K) (V, bool) {
	if pos, found := om.index[key]; found {
		return om.items[pos].Value, true
	}
	var zero V
	return zero, false
}

// Size returns the number of entries currently stored.
func (om *OrderedMap[K, V]) Size() int { return len(om.items) }

// Entries returns the stored values in insertion order.
func (om *OrderedMap[K, V]) Entries() []V {
	values := make([]V, 0, len(om.items))
	for _, entry := range om.items {
		values = append(values, entry.Value)
	}
	return values
}

// Keys returns the stored keys in insertion order.
func (om *OrderedMap[K, V]) Keys() []K {
	keys := make([]K, 0, len(om.items))
	for _, entry := range om.items {
		keys = append(keys, entry.Key)
	}
	return keys
}

// MarshalJSON encodes the map as an ordered array of {Key, Value} pairs:
// unexported fields 'index'/'items' would otherwise serialize to an empty
// object, silently dropping every entry.
func (om OrderedMap[K, V]) MarshalJSON() ([]byte, error) {
	if om.items == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(om.items)
}

// UnmarshalJSON rebuilds the map from the array produced by MarshalJSON,
// re-deriving the lookup index (Set preserves the array's order).
func (om *OrderedMap[K, V]) UnmarshalJSON(data []byte) error {
	var entries []MapEntry[K, V]
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}

	om.index, om.items = map[K]int{}, nil
	for _, entry := range entries {
		om.Set(entry.Key, entry.Value)
	}
	return nil
}
