package linkedlist

import (
	"fmt"
	"iter"
)

// Links holds the intrusive list pointers of an item. Embed Links[T] in the
// item type T to make it storable in a List[T].
type Links[T any] struct {
	prev  T
	next  T
	owner any
}

func (l *Links[T]) links() *Links[T] { return l }

// Next returns the following item, or the zero value at the tail.
func (l *Links[T]) Next() T { return l.next }

// Prev returns the preceding item, or the zero value at the head.
func (l *Links[T]) Prev() T { return l.prev }

// InList reports whether the item currently belongs to a list.
func (l *Links[T]) InList() bool { return l.owner != nil }

// Item is satisfied by pointer types that embed Links of themselves.
type Item[T any] interface {
	comparable
	links() *Links[T]
}

// List is an ordered collection with O(1) insertion and removal.
// The zero value is not usable; create lists with New.
type List[T Item[T]] struct {
	head   T
	tail   T
	length int

	adopt func(T)
	free  func(T)
}

// Option configures a List.
type Option[T Item[T]] func(*List[T])

// WithAdopt sets a hook called after an item is inserted.
func WithAdopt[T Item[T]](fn func(T)) Option[T] {
	return func(l *List[T]) {
		l.adopt = fn
	}
}

// WithFree sets a hook called after an item is removed.
func WithFree[T Item[T]](fn func(T)) Option[T] {
	return func(l *List[T]) {
		l.free = fn
	}
}

// New creates an empty list.
func New[T Item[T]](opts ...Option[T]) *List[T] {
	l := &List[T]{}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Head returns the first item, or the zero value if the list is empty.
func (l *List[T]) Head() T { return l.head }

// Tail returns the last item, or the zero value if the list is empty.
func (l *List[T]) Tail() T { return l.tail }

// Len returns the number of items.
func (l *List[T]) Len() int { return l.length }

// IsEmpty returns true if the list has no items.
func (l *List[T]) IsEmpty() bool { return l.length == 0 }

// Contains reports whether item belongs to this list.
func (l *List[T]) Contains(item T) bool {
	var zero T
	if item == zero {
		return false
	}
	return item.links().owner == any(l)
}

// Append adds item at the end of the list.
func (l *List[T]) Append(item T) error {
	var zero T
	return l.InsertBefore(item, zero)
}

// Prepend adds item at the start of the list.
func (l *List[T]) Prepend(item T) error {
	var zero T
	return l.InsertAfter(item, zero)
}

// InsertBefore inserts item before ref. A zero ref appends.
func (l *List[T]) InsertBefore(item, ref T) error {
	if err := l.checkInsert(item, ref); err != nil {
		return err
	}
	var zero T
	il := item.links()
	if ref == zero {
		il.prev = l.tail
		il.next = zero
		if l.tail != zero {
			l.tail.links().next = item
		} else {
			l.head = item
		}
		l.tail = item
	} else {
		rl := ref.links()
		il.prev = rl.prev
		il.next = ref
		if rl.prev != zero {
			rl.prev.links().next = item
		} else {
			l.head = item
		}
		rl.prev = item
	}
	l.attach(item)
	return nil
}

// InsertAfter inserts item after ref. A zero ref prepends.
func (l *List[T]) InsertAfter(item, ref T) error {
	var zero T
	if ref == zero {
		return l.InsertBefore(item, l.head)
	}
	if err := l.checkInsert(item, ref); err != nil {
		return err
	}
	return l.InsertBefore(item, ref.links().next)
}

// Remove takes item out of the list.
func (l *List[T]) Remove(item T) error {
	var zero T
	if item == zero {
		return fmt.Errorf("%w: remove of nil item", ErrInvalidOperation)
	}
	il := item.links()
	if il.owner != any(l) {
		return fmt.Errorf("%w: item is not owned by this list", ErrInvalidOperation)
	}
	if il.prev != zero {
		il.prev.links().next = il.next
	} else {
		l.head = il.next
	}
	if il.next != zero {
		il.next.links().prev = il.prev
	} else {
		l.tail = il.prev
	}
	il.prev = zero
	il.next = zero
	il.owner = nil
	l.length--
	if l.free != nil {
		l.free(item)
	}
	return nil
}

// Splice removes removeCount items starting at target, then inserts
// toInsert where target was. A zero target appends toInsert. Arguments are
// checked before the list is touched.
func (l *List[T]) Splice(target T, removeCount int, toInsert []T) error {
	var zero T
	if target != zero && target.links().owner != any(l) {
		return fmt.Errorf("%w: splice target is not owned by this list", ErrInvalidOperation)
	}
	seen := make(map[T]struct{}, len(toInsert))
	for _, item := range toInsert {
		if item == zero || item.links().owner != nil {
			return fmt.Errorf("%w: spliced item already belongs to a list", ErrInvalidOperation)
		}
		if _, dup := seen[item]; dup {
			return fmt.Errorf("%w: spliced item appears twice", ErrInvalidOperation)
		}
		seen[item] = struct{}{}
	}
	next := target
	for i := 0; i < removeCount && next != zero; i++ {
		following := next.links().next
		if err := l.Remove(next); err != nil {
			return err
		}
		next = following
	}
	for _, item := range toInsert {
		if err := l.InsertBefore(item, next); err != nil {
			return err
		}
	}
	return nil
}

// RemoveBy removes every item for which pred returns true.
func (l *List[T]) RemoveBy(pred func(T) bool) {
	var zero T
	item := l.head
	for item != zero {
		next := item.links().next
		if pred(item) {
			_ = l.Remove(item)
		}
		item = next
	}
}

// Clear removes all items.
func (l *List[T]) Clear() {
	l.RemoveBy(func(T) bool { return true })
}

// ForEach calls fn for each item with its index. fn may remove the item it
// is given.
func (l *List[T]) ForEach(fn func(item T, index int)) {
	var zero T
	i := 0
	for item := l.head; item != zero; {
		next := item.links().next
		fn(item, i)
		i++
		item = next
	}
}

// All returns an iterator over the items. Removing the current item during
// iteration is allowed.
func (l *List[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		var zero T
		for item := l.head; item != zero; {
			next := item.links().next
			if !yield(item) {
				return
			}
			item = next
		}
	}
}

// Backward returns an iterator from tail to head.
func (l *List[T]) Backward() iter.Seq[T] {
	return func(yield func(T) bool) {
		var zero T
		for item := l.tail; item != zero; {
			prev := item.links().prev
			if !yield(item) {
				return
			}
			item = prev
		}
	}
}

// Detect returns the first item matching pred, or the zero value.
func (l *List[T]) Detect(pred func(T) bool) T {
	var zero T
	return l.DetectFrom(pred, zero, false)
}

// DetectFrom searches from start (head or tail when zero) in the given
// direction and returns the first item matching pred.
func (l *List[T]) DetectFrom(pred func(T) bool, start T, reverse bool) T {
	var zero T
	item := start
	if item == zero {
		if reverse {
			item = l.tail
		} else {
			item = l.head
		}
	}
	for item != zero {
		if pred(item) {
			return item
		}
		if reverse {
			item = item.links().prev
		} else {
			item = item.links().next
		}
	}
	return zero
}

// ObjectAt returns the item at index, or the zero value when out of range.
func (l *List[T]) ObjectAt(index int) T {
	var zero T
	if index < 0 || index >= l.length {
		return zero
	}
	item := l.head
	for i := 0; i < index; i++ {
		item = item.links().next
	}
	return item
}

// IndexOf returns the position of item, or -1 if it is not in the list.
func (l *List[T]) IndexOf(item T) int {
	if !l.Contains(item) {
		return -1
	}
	var zero T
	i := 0
	for cur := l.head; cur != zero; cur = cur.links().next {
		if cur == item {
			return i
		}
		i++
	}
	return -1
}

// Items returns the items as a slice.
func (l *List[T]) Items() []T {
	out := make([]T, 0, l.length)
	for item := range l.All() {
		out = append(out, item)
	}
	return out
}

func (l *List[T]) checkInsert(item, ref T) error {
	var zero T
	if item == zero {
		return fmt.Errorf("%w: insert of nil item", ErrInvalidOperation)
	}
	if item.links().owner != nil {
		return fmt.Errorf("%w: item already belongs to a list", ErrInvalidOperation)
	}
	if ref != zero && ref.links().owner != any(l) {
		return fmt.Errorf("%w: reference item is not owned by this list", ErrInvalidOperation)
	}
	return nil
}

func (l *List[T]) attach(item T) {
	item.links().owner = l
	l.length++
	if l.adopt != nil {
		l.adopt(item)
	}
}
