// internal/chain/journal.go
package chain

// journal is an ordered list of undo actions. Reverting to a snapshot runs
// the actions recorded after it in reverse order.
type journal struct {
	undo []func()
}

func (j *journal) append(fn func()) {
	j.undo = append(j.undo, fn)
}

func (j *journal) snapshot() int {
	return len(j.undo)
}

func (j *journal) revert(snap int) {
	for i := len(j.undo) - 1; i >= snap; i-- {
		j.undo[i]()
	}
	j.undo = j.undo[:snap]
}

func (j *journal) reset() {
	j.undo = j.undo[:0]
}

// Set assigns v to *p and journals the previous value.
func Set[T any](h *Host, p *T, v T) {
	old := *p
	h.Record(func() { *p = old })
	*p = v
}

// SetKey assigns m[k] = v and journals the previous entry (or its absence).
func SetKey[K comparable, V any](h *Host, m map[K]V, k K, v V) {
	old, existed := m[k]
	h.Record(func() {
		if existed {
			m[k] = old
		} else {
			delete(m, k)
		}
	})
	m[k] = v
}

// DeleteKey removes m[k] and journals the previous entry.
func DeleteKey[K comparable, V any](h *Host, m map[K]V, k K) {
	old, existed := m[k]
	if !existed {
		return
	}
	h.Record(func() { m[k] = old })
	delete(m, k)
}

// Append appends v to *s and journals the truncation.
func Append[T any](h *Host, s *[]T, v T) {
	n := len(*s)
	h.Record(func() { *s = (*s)[:n] })
	*s = append(*s, v)
}
