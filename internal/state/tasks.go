package state

import (
	"context"
	"strings"

	"github.com/sadopc/tempo/internal/mirror"
	"github.com/sadopc/tempo/internal/models"
	"github.com/sadopc/tempo/internal/remote"
)

// Tasks works local-only while signed out.
type Tasks struct {
	loadFlag
	env
	list     *List[models.Task]
	repo     *remote.Repo[models.Task]
	progress *Progress
}

func newTasks(e env, progress *Progress) *Tasks {
	t := &Tasks{
		env:      e,
		list:     NewList[models.Task](e.mirror, mirror.KeyTasks, e.log),
		progress: progress,
	}
	if e.docs != nil {
		t.repo = remote.NewRepo[models.Task](e.docs, remote.Tasks)
	}
	return t
}

// Items returns the tasks, newest first.
func (t *Tasks) Items() []models.Task { return t.list.Items() }

func (t *Tasks) Find(id string) (models.Task, bool) { return t.list.Find(id) }

func (t *Tasks) Load(ctx context.Context) {
	load(ctx, t.env, &t.loadFlag, t.list, string(remote.Tasks), func(ctx context.Context, uid string) ([]models.Task, error) {
		return t.repo.List(ctx, remote.Filter{UserID: uid})
	})
}

func (t *Tasks) Reset() { t.list.Reset() }

func (t *Tasks) Add(text string) Commit {
	text = strings.TrimSpace(text)
	if text == "" {
		return Noop
	}
	uid := t.remoteUser()
	task := models.Task{
		ID:        models.NewPlaceholderID(),
		UserID:    uid,
		Text:      text,
		CreatedAt: t.now().UTC(),
	}
	a := Action{
		Name: "add task",
		Apply: func() (func(), bool) {
			return t.list.Insert(task, uid != ""), true
		},
		Reconcile: func(id string) { t.list.Reconcile(task.ID, id) },
	}
	if uid != "" {
		a.Remote = func(ctx context.Context) (string, error) {
			created, err := t.repo.Create(ctx, uid, task)
			return created.ID, err
		}
	}
	return Begin(t.log, a)
}

// Toggle flips completion. Becoming completed earns XP once the change is
// confirmed.
func (t *Tasks) Toggle(id string) Commit {
	task, ok := t.list.Find(id)
	if !ok {
		return Noop
	}
	return t.setCompleted(task, !task.Completed)
}

// Complete marks a task done; an already completed task is left alone.
func (t *Tasks) Complete(id string) Commit {
	task, ok := t.list.Find(id)
	if !ok || task.Completed {
		return Noop
	}
	return t.setCompleted(task, true)
}

func (t *Tasks) setCompleted(task models.Task, completed bool) Commit {
	uid := t.remoteUser()
	a := Action{
		Name: "toggle task",
		Apply: func() (func(), bool) {
			return t.list.Update(task.ID, func(it models.Task) models.Task {
				it.Completed = completed
				return it
			})
		},
		OnSuccess: func() {
			if completed {
				t.progress.Award(XPPerTask)
			}
		},
	}
	if uid != "" {
		a.Remote = func(ctx context.Context) (string, error) {
			id, err := t.list.Resolve(ctx, task.ID)
			if err != nil {
				return "", err
			}
			return "", t.repo.Update(ctx, uid, id, map[string]any{"completed": completed})
		}
	}
	return Begin(t.log, a)
}

func (t *Tasks) Delete(id string) Commit {
	if _, ok := t.list.Find(id); !ok {
		return Noop
	}
	uid := t.remoteUser()
	a := Action{
		Name: "delete task",
		Apply: func() (func(), bool) {
			return t.list.Remove(id)
		},
	}
	if uid != "" {
		a.Remote = func(ctx context.Context) (string, error) {
			id, err := t.list.Resolve(ctx, id)
			if err != nil {
				return "", err
			}
			return "", t.repo.Delete(ctx, uid, id)
		}
	}
	return Begin(t.log, a)
}
