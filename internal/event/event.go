/*
 * ia32os - Event scheduler
 *
 * Copyright 2026, The ia32os Authors
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

// Package event implements a delta-queue software timer list: every
// periodic interrupt in the kernel simulation (the RTC tick, the PIT
// scheduler tick) is a callback scheduled here instead of a real IRQ.
package event

import "sync"

// Callback is invoked when a scheduled event's time expires.
type Callback = func(iarg int)

// owner identifies the subsystem an event belongs to, so CancelEvent can
// find it again without a device-interface dependency.
type owner any

type entry struct {
	time int // Ticks remaining until this event fires.
	who  owner
	cb   Callback
	iarg int
	prev *entry
	next *entry
}

// List is a delta queue: each entry's time field is relative to the
// entry before it, so Advance only ever touches the head.
type List struct {
	mu   sync.Mutex
	head *entry
	tail *entry
}

// NewList returns an empty event list.
func NewList() *List {
	return &List{}
}

// Add schedules cb to run after the given number of ticks. A zero tick
// count runs the callback immediately, synchronously, matching the
// teacher's "don't bother queuing a same-tick event" shortcut.
func (l *List) Add(who owner, cb Callback, ticks int, iarg int) {
	if ticks <= 0 {
		cb(iarg)
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	ev := &entry{who: who, cb: cb, time: ticks, iarg: iarg}

	cur := l.head
	if cur == nil {
		l.head = ev
		l.tail = ev
		return
	}

	for cur != nil {
		if ev.time <= cur.time {
			cur.time -= ev.time
			ev.prev = cur.prev
			ev.next = cur
			cur.prev = ev
			if ev.prev != nil {
				ev.prev.next = ev
			} else {
				l.head = ev
			}
			return
		}
		ev.time -= cur.time
		cur = cur.next
	}

	ev.prev = l.tail
	l.tail.next = ev
	l.tail = ev
}

// Cancel removes the first pending event matching who and iarg, if any.
func (l *List) Cancel(who owner, iarg int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for cur := l.head; cur != nil; cur = cur.next {
		if cur.who != who || cur.iarg != iarg {
			continue
		}
		if cur.next != nil {
			cur.next.time += cur.time
			cur.next.prev = cur.prev
		} else {
			l.tail = cur.prev
		}
		if cur.prev != nil {
			cur.prev.next = cur.next
		} else {
			l.head = cur.next
		}
		return
	}
}

// Pending reports whether any event is scheduled.
func (l *List) Pending() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.head != nil
}

// Advance moves the clock forward by t ticks, firing every event whose
// time has expired. Callbacks run outside the lock so they may
// themselves call Add/Cancel.
func (l *List) Advance(t int) {
	l.mu.Lock()
	if l.head == nil {
		l.mu.Unlock()
		return
	}
	l.head.time -= t

	var due []*entry
	for l.head != nil && l.head.time <= 0 {
		due = append(due, l.head)
		l.head = l.head.next
		if l.head != nil {
			l.head.prev = nil
		} else {
			l.tail = nil
		}
	}
	l.mu.Unlock()

	for _, ev := range due {
		ev.cb(ev.iarg)
	}
}
