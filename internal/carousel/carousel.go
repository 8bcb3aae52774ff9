package carousel

import (
	"sync"

	"storefront/internal/model"
)

// Frame is one image of an order's flattened image sequence.
type Frame struct {
	URL         string
	ProductName string
	Index       int
	Total       int
}

// Flatten walks items in order and then each item's images in order.
func Flatten(o model.Order) []Frame {
	var total int
	for _, it := range o.Items {
		total += len(it.Images)
	}
	if total == 0 {
		return nil
	}

	frames := make([]Frame, 0, total)
	for _, it := range o.Items {
		for _, url := range it.Images {
			frames = append(frames, Frame{URL: url, ProductName: it.ProductName, Index: len(frames), Total: total})
		}
	}
	return frames
}

// Current returns the frame under cursor. ok is false when the order has no images.
func Current(o model.Order, cursor int) (Frame, bool) {
	frames := Flatten(o)
	if len(frames) == 0 {
		return Frame{}, false
	}
	return frames[wrap(cursor, len(frames))], true
}

func Next(cursor, total int) int {
	if total <= 0 {
		return cursor
	}
	return wrap(cursor+1, total)
}

func Prev(cursor, total int) int {
	if total <= 0 {
		return cursor
	}
	return wrap(cursor-1, total)
}

// wrap keeps the result in [0, total) for any sign of i; Go's % keeps the dividend's sign.
func wrap(i, total int) int {
	m := i % total
	if m < 0 {
		m += total
	}
	return m
}

// Cursors holds the per-order carousel position, independent of the order cache.
// Absent entries read as 0.
type Cursors struct {
	mu  sync.Mutex
	pos map[string]int
}

func NewCursors() *Cursors {
	return &Cursors{pos: make(map[string]int)}
}

func (c *Cursors) Get(orderID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pos[orderID]
}

func (c *Cursors) Next(o model.Order) int {
	return c.step(o, Next)
}

func (c *Cursors) Prev(o model.Order) int {
	return c.step(o, Prev)
}

func (c *Cursors) step(o model.Order, move func(cursor, total int) int) int {
	total := len(Flatten(o))

	c.mu.Lock()
	defer c.mu.Unlock()
	cur := c.pos[o.ID]
	if total == 0 {
		return cur
	}
	next := move(cur, total)
	c.pos[o.ID] = next
	return next
}

// Retain drops cursors of orders that are no longer in ids.
func (c *Cursors) Retain(ids []string) {
	keep := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		keep[id] = struct{}{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for id := range c.pos {
		if _, ok := keep[id]; !ok {
			delete(c.pos, id)
		}
	}
}
