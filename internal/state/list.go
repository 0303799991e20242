// Package state holds the per-domain containers. Each container owns an
// in-memory list that is mirrored to local storage after every change and
// synchronised optimistically with the remote store.
package state

import (
	"context"
	"errors"
	"reflect"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/sadopc/tempo/internal/mirror"
)

// ErrCreateReverted is returned by Resolve for a placeholder whose remote
// create failed.
var ErrCreateReverted = errors.New("create was reverted")

// Entity is a record whose id can be swapped once the remote store mints one.
type Entity[T any] interface {
	Key() string
	WithKey(id string) T
}

// List is an in-memory list mirrored whole under one key.
type List[T Entity[T]] struct {
	mu    sync.Mutex
	items []T
	m     *mirror.Mirror
	key   string
	log   *log.Logger

	// creates tracks placeholders whose remote create has been started.
	creates map[string]*pendingCreate
}

// pendingCreate is closed once the remote create of a placeholder settles.
type pendingCreate struct {
	done     chan struct{}
	minted   string
	reverted bool
}

func (p *pendingCreate) settled() bool { return p.minted != "" || p.reverted }

func NewList[T Entity[T]](m *mirror.Mirror, key string, logger *log.Logger) *List[T] {
	return &List[T]{m: m, key: key, log: logger, creates: map[string]*pendingCreate{}}
}

// Items returns a copy of the current list.
func (l *List[T]) Items() []T {
	l.mu.Lock()
	defer l.mu.Unlock()
	return clone(l.items)
}

func (l *List[T]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}

// Find returns the item with the given id. A reconciled placeholder finds
// the item under its minted id.
func (l *List[T]) Find(id string) (T, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if i := l.indexLocked(id); i >= 0 {
		return l.items[i], true
	}
	var zero T
	return zero, false
}

// Replace overwrites the list and the mirror.
func (l *List[T]) Replace(items []T) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = clone(items)
	l.persistLocked()
}

// LoadMirror replaces the in-memory list with the mirrored one. A missing or
// unreadable value leaves an empty list.
func (l *List[T]) LoadMirror() {
	var items []T
	l.m.Read(l.key, &items)
	l.mu.Lock()
	l.items = items
	l.mu.Unlock()
}

// Reset drops the in-memory list without touching the mirror.
func (l *List[T]) Reset() {
	l.mu.Lock()
	l.items = nil
	l.mu.Unlock()
}

// Insert prepends v. With pending set, v.Key() is a placeholder whose remote
// create is about to run: Resolve waits for it. The undo removes v by id,
// whatever id it carries by then.
func (l *List[T]) Insert(v T, pending bool) (undo func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	id := v.Key()
	if pending {
		l.creates[id] = &pendingCreate{done: make(chan struct{})}
	}
	l.items = prepend(clone(l.items), v)
	l.persistLocked()
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if p, ok := l.creates[id]; ok && !p.settled() {
			p.reverted = true
			close(p.done)
		}
		if next, ok := remove(clone(l.items), l.resolvedLocked(id)); ok {
			l.items = next
			l.persistLocked()
		}
	}
}

// Update applies fn to the item with id. The undo puts the old value back
// only while the item still holds the value fn produced; a later change to
// the same item wins.
func (l *List[T]) Update(id string, fn func(T) T) (undo func(), ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	i := l.indexLocked(id)
	if i < 0 {
		return nil, false
	}
	before := l.items[i]
	after := fn(before)
	l.items = clone(l.items)
	l.items[i] = after
	l.persistLocked()
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		i := l.indexLocked(id)
		if i < 0 {
			return
		}
		cur := l.items[i]
		if !reflect.DeepEqual(cur, after.WithKey(cur.Key())) {
			return
		}
		l.items = clone(l.items)
		l.items[i] = before.WithKey(cur.Key())
		l.persistLocked()
	}, true
}

// Remove drops the item with id. The undo puts it back at its old position
// unless an item with its id has reappeared.
func (l *List[T]) Remove(id string) (undo func(), ok bool) {
	return l.RemoveWhere(func(it T) bool { return it.Key() == l.resolvedLocked(id) })
}

// RemoveWhere drops every item matching pred. pred runs under the list lock.
func (l *List[T]) RemoveWhere(pred func(T) bool) (undo func(), ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	type removed struct {
		at   int
		item T
	}
	var gone []removed
	kept := make([]T, 0, len(l.items))
	for i, it := range l.items {
		if pred(it) {
			gone = append(gone, removed{at: i, item: it})
			continue
		}
		kept = append(kept, it)
	}
	if len(gone) == 0 {
		return nil, false
	}
	l.items = kept
	l.persistLocked()
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		items := clone(l.items)
		for _, g := range gone {
			if l.indexLocked(g.item.Key()) >= 0 {
				continue
			}
			at := min(g.at, len(items))
			items = append(items[:at], append([]T{g.item}, items[at:]...)...)
		}
		l.items = items
		l.persistLocked()
	}, true
}

// Swap replaces the list with fn's result without the mirror write or
// undo, for edits whose persistence is deferred.
func (l *List[T]) Swap(fn func([]T) ([]T, bool)) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	next, ok := fn(clone(l.items))
	if ok {
		l.items = next
	}
	return ok
}

// Persist writes the current list to the mirror.
func (l *List[T]) Persist() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.persistLocked()
}

// Reconcile replaces a placeholder id with the minted one, once, in memory
// and in the mirror, and releases commits waiting in Resolve.
func (l *List[T]) Reconcile(placeholder, id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.creates[placeholder]
	if !ok {
		p = &pendingCreate{done: make(chan struct{})}
		l.creates[placeholder] = p
	}
	if p.settled() {
		return
	}
	p.minted = id
	close(p.done)
	for i, it := range l.items {
		if it.Key() == placeholder {
			l.items = clone(l.items)
			l.items[i] = it.WithKey(id)
			l.persistLocked()
			return
		}
	}
}

// Resolve returns the id to send to the remote store for id. A placeholder
// whose create is still in flight is waited for.
func (l *List[T]) Resolve(ctx context.Context, id string) (string, error) {
	l.mu.Lock()
	p, ok := l.creates[id]
	l.mu.Unlock()
	if !ok {
		return id, nil
	}
	select {
	case <-p.done:
	case <-ctx.Done():
		return id, ctx.Err()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if p.minted == "" {
		return id, ErrCreateReverted
	}
	return p.minted, nil
}

func (l *List[T]) resolvedLocked(id string) string {
	if p, ok := l.creates[id]; ok && p.minted != "" {
		return p.minted
	}
	return id
}

func (l *List[T]) indexLocked(id string) int {
	id = l.resolvedLocked(id)
	for i, it := range l.items {
		if it.Key() == id {
			return i
		}
	}
	return -1
}

func (l *List[T]) persistLocked() {
	items := l.items
	if items == nil {
		items = []T{}
	}
	if err := l.m.Write(l.key, items); err != nil {
		l.log.Warn("mirror write failed", "key", l.key, "err", err)
	}
}

func clone[T any](s []T) []T {
	if s == nil {
		return nil
	}
	out := make([]T, len(s))
	copy(out, s)
	return out
}

// update returns fn applied to the item with id, reporting whether it was found.
func update[T Entity[T]](items []T, id string, fn func(T) T) ([]T, bool) {
	for i, it := range items {
		if it.Key() == id {
			items[i] = fn(it)
			return items, true
		}
	}
	return items, false
}

func remove[T Entity[T]](items []T, id string) ([]T, bool) {
	for i, it := range items {
		if it.Key() == id {
			return append(items[:i], items[i+1:]...), true
		}
	}
	return items, false
}

func prepend[T any](items []T, v T) []T {
	return append([]T{v}, items...)
}
