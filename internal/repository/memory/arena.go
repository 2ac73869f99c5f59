package memory

// arena stores records in insertion order.  A record's ID is its slot index
// plus one; removed slots stay allocated so IDs are never reused.
type arena[T any] struct {
	items []T
	live  []bool
}

func (a *arena[T]) insert(v T) uint64 {
	a.items = append(a.items, v)
	a.live = append(a.live, true)
	return uint64(len(a.items))
}

func (a *arena[T]) slot(id uint64) (int, bool) {
	if id == 0 || id > uint64(len(a.items)) {
		return 0, false
	}
	i := int(id - 1)
	return i, a.live[i]
}

func (a *arena[T]) get(id uint64) (T, bool) {
	i, ok := a.slot(id)
	if !ok {
		var zero T
		return zero, false
	}
	return a.items[i], true
}

func (a *arena[T]) set(id uint64, v T) bool {
	i, ok := a.slot(id)
	if ok {
		a.items[i] = v
	}
	return ok
}

func (a *arena[T]) remove(id uint64) bool {
	i, ok := a.slot(id)
	if ok {
		var zero T
		a.items[i] = zero
		a.live[i] = false
	}
	return ok
}

// each calls fn for live records in ID order until fn returns false.
func (a *arena[T]) each(fn func(id uint64, v T) bool) {
	for i, v := range a.items {
		if a.live[i] && !fn(uint64(i+1), v) {
			return
		}
	}
}

func (a *arena[T]) clone() arena[T] {
	return arena[T]{
		items: append([]T(nil), a.items...),
		live:  append([]bool(nil), a.live...),
	}
}

// index maps a parent ID to child IDs in insertion order.
type index map[uint64][]uint64

func (x index) add(parent, child uint64) { x[parent] = append(x[parent], child) }

func (x index) drop(parent, child uint64) {
	ids := x[parent]
	for i, id := range ids {
		if id == child {
			x[parent] = append(ids[:i:i], ids[i+1:]...)
			return
		}
	}
}

func (x index) clone() index {
	out := make(index, len(x))
	for k, v := range x {
		out[k] = append([]uint64(nil), v...)
	}
	return out
}
