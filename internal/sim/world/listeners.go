package world

// ListenerID identifies a registered tick callback.
type ListenerID uint64

type listener struct {
	id       ListenerID
	interval float64
	acc      float64
	fn       func(dt float64)
	removed  bool
}

// listeners run in registration order. A callback fires once its accumulator
// crosses its interval and receives the accumulated time.
type listeners struct {
	next ListenerID
	list []*listener
}

func (ls *listeners) add(interval float64, fn func(dt float64)) ListenerID {
	ls.next++
	ls.list = append(ls.list, &listener{id: ls.next, interval: interval, fn: fn})
	return ls.next
}

func (ls *listeners) remove(id ListenerID) {
	for _, l := range ls.list {
		if l.id == id {
			l.removed = true
		}
	}
}

func (ls *listeners) run(dt float64) {
	// Callbacks may register or remove listeners; new ones start next tick.
	n := len(ls.list)
	for i := 0; i < n; i++ {
		l := ls.list[i]
		if l.removed {
			continue
		}
		l.acc += dt
		if l.acc+1e-9 < l.interval {
			continue
		}
		acc := l.acc
		l.acc = 0
		l.fn(acc)
	}
	live := ls.list[:0]
	for _, l := range ls.list {
		if !l.removed {
			live = append(live, l)
		}
	}
	for i := len(live); i < len(ls.list); i++ {
		ls.list[i] = nil
	}
	ls.list = live
}

func (ls *listeners) len() int { return len(ls.list) }

// RegisterTick adds a callback run every interval seconds of simulated time.
func (w *World) RegisterTick(interval float64, fn func(dt float64)) ListenerID {
	return w.listeners.add(interval, fn)
}

// UnregisterTick is the only way a callback is cancelled.
func (w *World) UnregisterTick(id ListenerID) { w.listeners.remove(id) }
