package ilist

import "testing"

type elem struct {
	node Node[*elem]
	id   int
}

func newElem(id int) *elem {
	e := &elem{id: id}
	e.node.Value = e
	return e
}

func TestPushBackFIFOOrder(t *testing.T) {
	var l List[*elem]
	l.Init()

	a, b, c := newElem(1), newElem(2), newElem(3)
	l.PushBack(&a.node)
	l.PushBack(&b.node)
	l.PushBack(&c.node)

	if l.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", l.Len())
	}

	for _, want := range []int{1, 2, 3} {
		n := l.PopFront()
		if n == nil || n.Value.id != want {
			t.Fatalf("PopFront() = %v, want id %d", n, want)
		}
	}
	if !l.Empty() {
		t.Fatalf("list should be empty after draining")
	}
}

func TestRemoveMiddle(t *testing.T) {
	var l List[*elem]
	l.Init()

	a, b, c := newElem(1), newElem(2), newElem(3)
	l.PushBack(&a.node)
	l.PushBack(&b.node)
	l.PushBack(&c.node)

	l.Remove(&b.node)
	if l.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", l.Len())
	}

	n := l.PopFront()
	if n.Value.id != 1 {
		t.Fatalf("first = %d, want 1", n.Value.id)
	}
	n = l.PopFront()
	if n.Value.id != 3 {
		t.Fatalf("second = %d, want 3", n.Value.id)
	}
}

func TestRemoveNotMemberIsNoop(t *testing.T) {
	var l1, l2 List[*elem]
	l1.Init()
	l2.Init()

	a := newElem(1)
	l1.PushBack(&a.node)

	// a.node belongs to l1, removing via l2 must not panic or corrupt l1.
	l2.Remove(&a.node)
	if l1.Len() != 1 {
		t.Fatalf("l1.Len() = %d, want 1 (unaffected)", l1.Len())
	}
}

func TestRemoveNilIsNoop(t *testing.T) {
	var l List[*elem]
	l.Init()
	l.Remove(nil) // must not panic
}
