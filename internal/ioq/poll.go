package ioq

// Poll sweeps expired closing keys, waits on the backend, classifies each
// event, and dispatches up to MaxEventsPerPoll completions outside the
// registry lock.
func (d *Dispatcher) Poll(timeoutMillis int) (int, error) {
	d.SweepClosing()

	events, err := d.backend.Wait(timeoutMillis)
	if err != nil {
		return 0, err
	}

	if len(events) == 0 {
		d.mu.Lock()
		hasClosing := !d.closing.Empty()
		d.mu.Unlock()
		if hasClosing {
			d.SweepClosing()
		}
		return 0, nil
	}

	type selected struct {
		key  *Key
		kind eventKind
	}

	d.mu.Lock()
	picks := make([]selected, 0, len(events))
	for _, e := range events {
		k := e.Key
		if k == nil || k.Closing() {
			continue
		}
		kind, ok := classify(k, e)
		if !ok {
			continue
		}
		k.AddRef()
		if k.GroupLock != nil {
			k.GroupLock.AddRef()
		}
		picks = append(picks, selected{key: k, kind: kind})
	}
	d.mu.Unlock()

	processed := 0
	for _, p := range picks {
		if processed < d.MaxEventsPerPoll {
			switch p.kind {
			case eventReadable:
				d.dispatchReadable(p.key)
			case eventWritable:
				d.dispatchWritable(p.key)
			case eventException:
				d.dispatchException(p.key)
			}
			processed++
		}
		releaseDispatchRef(p.key)
	}
	return processed, nil
}

func releaseDispatchRef(k *Key) {
	zero := k.DecRef()
	if k.GroupLock != nil {
		k.GroupLock.DecRef()
	}
	_ = zero // the sweep, not this goroutine, reclaims a zero-refcount closing key
}

type eventKind int

const (
	eventReadable eventKind = iota
	eventWritable
	eventException
)

// classify applies the shared event-to-dispatch mapping.
func classify(k *Key, e Event) (eventKind, bool) {
	k.Lock()
	readWanted := !k.ReadQ.Empty() || !k.AcceptQ.Empty()
	writeWanted := !k.WriteQ.Empty()
	connecting := k.Connecting
	k.Unlock()

	switch {
	case e.Readable && readWanted:
		return eventReadable, true
	case e.Writable && writeWanted:
		return eventWritable, true
	case e.Writable && connecting:
		return eventWritable, true
	case e.Error && connecting:
		return eventException, true
	case e.Error && readWanted:
		return eventReadable, true
	default:
		return 0, false
	}
}
