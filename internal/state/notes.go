package state

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/sadopc/tempo/internal/dates"
	"github.com/sadopc/tempo/internal/mirror"
	"github.com/sadopc/tempo/internal/models"
	"github.com/sadopc/tempo/internal/remote"
)

// AutosaveDelay is how long a note must stay unedited before it is saved.
const AutosaveDelay = 2 * time.Second

// Timer is a pending callback.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f to run once after d.
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

type pendingSave struct {
	id    string
	token uint64
	timer Timer
}

// Notes edits are kept in memory and saved once typing pauses. Saves always
// reach the mirror; the remote half is best-effort and never reverted.
type Notes struct {
	loadFlag
	env
	list      *List[models.Note]
	repo      *remote.Repo[models.Note]
	delay     time.Duration
	afterFunc AfterFunc

	mu      sync.Mutex
	seq     uint64
	pending map[string]*pendingSave
}

func newNotes(e env, delay time.Duration, after AfterFunc) *Notes {
	if delay <= 0 {
		delay = AutosaveDelay
	}
	if after == nil {
		after = realAfterFunc
	}
	n := &Notes{
		env:       e,
		list:      NewList[models.Note](e.mirror, mirror.KeyNotes, e.log),
		delay:     delay,
		afterFunc: after,
		pending:   map[string]*pendingSave{},
	}
	if e.docs != nil {
		n.repo = remote.NewRepo[models.Note](e.docs, remote.Notes)
	}
	return n
}

func (n *Notes) Items() []models.Note { return n.list.Items() }

func (n *Notes) Find(id string) (models.Note, bool) { return n.list.Find(id) }

func (n *Notes) Load(ctx context.Context) {
	load(ctx, n.env, &n.loadFlag, n.list, string(remote.Notes), func(ctx context.Context, uid string) ([]models.Note, error) {
		return n.repo.List(ctx, remote.Filter{UserID: uid})
	})
}

// Reset cancels pending saves and drops the in-memory list.
func (n *Notes) Reset() {
	n.Cancel()
	n.list.Reset()
}

// Create adds a note dated today. The title is required.
func (n *Notes) Create(title, content string) Commit {
	title = strings.TrimSpace(title)
	if title == "" {
		return Noop
	}
	uid := n.remoteUser()
	now := n.now()
	note := models.Note{
		ID:        models.NewPlaceholderID(),
		UserID:    uid,
		Title:     title,
		Content:   content,
		Date:      dates.Of(now),
		UpdatedAt: now.UTC(),
	}
	a := Action{
		Name: "create note",
		Apply: func() (func(), bool) {
			return n.list.Insert(note, uid != ""), true
		},
		Reconcile: func(id string) {
			n.list.Reconcile(note.ID, id)
			n.rekey(note.ID, id)
		},
	}
	if uid != "" {
		a.Remote = func(ctx context.Context) (string, error) {
			created, err := n.repo.Create(ctx, uid, note)
			return created.ID, err
		}
	}
	return Begin(n.log, a)
}

// Edit changes a note in memory and (re)starts its autosave countdown. It
// reports false for an unknown id or a blank title.
func (n *Notes) Edit(id, title, content string) bool {
	title = strings.TrimSpace(title)
	if title == "" {
		return false
	}
	note, ok := n.list.Find(id)
	if !ok {
		return false
	}
	id = note.ID
	ok = n.list.Swap(func(items []models.Note) ([]models.Note, bool) {
		return update(items, id, func(it models.Note) models.Note {
			it.Title = title
			it.Content = content
			it.UpdatedAt = n.now().UTC()
			return it
		})
	})
	if !ok {
		return false
	}
	n.schedule(id)
	return true
}

func (n *Notes) schedule(id string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if p, ok := n.pending[id]; ok {
		p.timer.Stop()
	}
	n.seq++
	p := &pendingSave{id: id, token: n.seq}
	p.timer = n.afterFunc(n.delay, func() { n.fire(p) })
	n.pending[id] = p
}

// fire runs a debounced save unless it was superseded or cancelled.
func (n *Notes) fire(p *pendingSave) {
	n.mu.Lock()
	cur, ok := n.pending[p.id]
	if !ok || cur.token != p.token {
		n.mu.Unlock()
		return
	}
	delete(n.pending, p.id)
	id := p.id
	n.mu.Unlock()

	n.save(context.Background(), id)
}

// Pending reports how many notes have unsaved edits.
func (n *Notes) Pending() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.pending)
}

// Flush saves every pending edit now.
func (n *Notes) Flush(ctx context.Context) {
	n.mu.Lock()
	ids := make([]string, 0, len(n.pending))
	for id, p := range n.pending {
		p.timer.Stop()
		ids = append(ids, id)
	}
	n.pending = map[string]*pendingSave{}
	n.mu.Unlock()

	for _, id := range ids {
		n.save(ctx, id)
	}
}

// Cancel stops every pending autosave without saving.
func (n *Notes) Cancel() {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, p := range n.pending {
		p.timer.Stop()
	}
	n.pending = map[string]*pendingSave{}
}

func (n *Notes) save(ctx context.Context, id string) {
	note, ok := n.list.Find(id)
	if !ok {
		return
	}
	id = note.ID
	n.list.Persist()
	uid := n.remoteUser()
	if uid == "" || models.IsPlaceholder(id) {
		return
	}
	err := n.repo.Update(ctx, uid, id, map[string]any{
		"title":     note.Title,
		"content":   note.Content,
		"updatedAt": note.UpdatedAt,
	})
	if err != nil {
		n.log.Warn("note autosave failed, kept locally", "id", id, "err", err)
	}
}

// rekey moves a pending save to the id minted for a placeholder.
func (n *Notes) rekey(placeholder, id string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	p, ok := n.pending[placeholder]
	if !ok {
		return
	}
	delete(n.pending, placeholder)
	p.id = id
	n.pending[id] = p
}

func (n *Notes) Delete(id string) Commit {
	note, ok := n.list.Find(id)
	if !ok {
		return Noop
	}
	id = note.ID
	n.mu.Lock()
	if p, ok := n.pending[id]; ok {
		p.timer.Stop()
		delete(n.pending, id)
	}
	n.mu.Unlock()

	uid := n.remoteUser()
	a := Action{
		Name: "delete note",
		Apply: func() (func(), bool) {
			return n.list.Remove(id)
		},
	}
	if uid != "" {
		a.Remote = func(ctx context.Context) (string, error) {
			id, err := n.list.Resolve(ctx, id)
			if err != nil {
				return "", err
			}
			return "", n.repo.Delete(ctx, uid, id)
		}
	}
	return Begin(n.log, a)
}
