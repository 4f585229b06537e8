// Package ilist is an intrusive doubly-linked list: the link pointers live
// inside the element that's being queued, so pushing and popping never
// allocates. Used for a Key's read/write/accept operation queues and for
// the registry's active/closing/free lists.
package ilist

// Node is the link embedded in a queued element. Its zero value is an
// unlinked node, ready to be passed to PushBack; Node has no Init of its own.
type Node[T any] struct {
	next, prev *Node[T]
	list       *List[T]
	// Value points back to the element that owns this Node. Setting it once
	// at construction is what makes PushBack/Remove allocation-free: the
	// list only ever manipulates pointers already live in the element.
	Value T
}

// List is a circular doubly-linked list of Node[T], FIFO ordered front to
// back. The zero value is not ready to use; call Init first.
type List[T any] struct {
	root Node[T]
	n    int
}

// Init (re)initializes an empty list and returns it, so it can be used in a
// struct literal or field initializer.
func (l *List[T]) Init() *List[T] {
	l.root.next = &l.root
	l.root.prev = &l.root
	l.n = 0
	return l
}

// Empty reports whether the list has no elements.
func (l *List[T]) Empty() bool { return l.root.next == &l.root }

// Len returns the number of elements currently queued.
func (l *List[T]) Len() int { return l.n }

// PushBack appends n to the tail of the list. n must not already be a member
// of any list.
func (l *List[T]) PushBack(n *Node[T]) {
	if l.root.next == nil {
		l.Init()
	}
	tail := l.root.prev
	n.prev = tail
	n.next = &l.root
	tail.next = n
	l.root.prev = n
	n.list = l
	l.n++
}

// Front returns the head element's Node, or nil if the list is empty.
func (l *List[T]) Front() *Node[T] {
	if l.Empty() {
		return nil
	}
	return l.root.next
}

// Remove unlinks n from whatever list it belongs to. It is a no-op if n is
// not currently linked. Safe to call on the result of Front to pop.
func (l *List[T]) Remove(n *Node[T]) {
	if n == nil || n.list != l {
		return
	}
	n.prev.next = n.next
	n.next.prev = n.prev
	n.next = nil
	n.prev = nil
	n.list = nil
	l.n--
}

// NodeAfter returns the node following n in list order, or nil if n is the
// last element. Used to walk the list while conditionally removing nodes —
// callers must capture NodeAfter(n) before calling Remove(n), since Remove
// clears n's own links.
func (l *List[T]) NodeAfter(n *Node[T]) *Node[T] {
	if n == nil || n.next == &l.root {
		return nil
	}
	return n.next
}

// PopFront removes and returns the head element's Node, or nil if empty.
func (l *List[T]) PopFront() *Node[T] {
	n := l.Front()
	l.Remove(n)
	return n
}
