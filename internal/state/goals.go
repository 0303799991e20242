package state

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/sadopc/tempo/internal/mirror"
	"github.com/sadopc/tempo/internal/models"
	"github.com/sadopc/tempo/internal/remote"
)

// Goals holds the goals of one calendar year. Every mutation needs a session.
type Goals struct {
	loadFlag
	env
	list *List[models.Goal]
	repo *remote.Repo[models.Goal]
	year atomic.Int64
}

func newGoals(e env) *Goals {
	g := &Goals{
		env:  e,
		list: NewList[models.Goal](e.mirror, mirror.KeyGoals, e.log),
	}
	if e.docs != nil {
		g.repo = remote.NewRepo[models.Goal](e.docs, remote.Goals)
	}
	g.year.Store(int64(e.now().Year()))
	return g
}

// Year is the year last loaded, the current year before any Load.
func (g *Goals) Year() int { return int(g.year.Load()) }

func (g *Goals) Items() []models.Goal { return g.list.Items() }

func (g *Goals) Find(id string) (models.Goal, bool) { return g.list.Find(id) }

// Load fetches the goals of year. The mirror fallback is narrowed to year.
func (g *Goals) Load(ctx context.Context, year int) {
	if year <= 0 {
		year = g.now().Year()
	}
	g.year.Store(int64(year))
	load(ctx, g.env, &g.loadFlag, g.list, string(remote.Goals), func(ctx context.Context, uid string) ([]models.Goal, error) {
		return g.repo.List(ctx, remote.Filter{UserID: uid, Year: year})
	})
	g.list.Swap(func(items []models.Goal) ([]models.Goal, bool) {
		kept := items[:0]
		for _, it := range items {
			if it.Year == year {
				kept = append(kept, it)
			}
		}
		return kept, len(kept) != len(items)
	})
}

func (g *Goals) Reset() { g.list.Reset() }

// Create adds a goal to the loaded year.
func (g *Goals) Create(title, description string) Commit {
	uid := g.remoteUser()
	title = strings.TrimSpace(title)
	if uid == "" || title == "" {
		return Noop
	}
	goal := models.Goal{
		ID:          models.NewPlaceholderID(),
		UserID:      uid,
		Title:       title,
		Description: strings.TrimSpace(description),
		Year:        g.Year(),
	}
	return Begin(g.log, Action{
		Name: "create goal",
		Apply: func() (func(), bool) {
			return g.list.Insert(goal, true), true
		},
		Remote: func(ctx context.Context) (string, error) {
			created, err := g.repo.Create(ctx, uid, goal)
			return created.ID, err
		},
		Reconcile: func(id string) { g.list.Reconcile(goal.ID, id) },
	})
}

func (g *Goals) Toggle(id string) Commit {
	goal, ok := g.list.Find(id)
	if !ok {
		return Noop
	}
	completed := !goal.Completed
	return g.patch("toggle goal", id, map[string]any{"completed": completed}, func(it models.Goal) models.Goal {
		it.Completed = completed
		return it
	})
}

// Update replaces the title and description. The title is required.
func (g *Goals) Update(id, title, description string) Commit {
	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)
	if title == "" {
		return Noop
	}
	if _, ok := g.list.Find(id); !ok {
		return Noop
	}
	return g.patch("update goal", id, map[string]any{"title": title, "description": description}, func(it models.Goal) models.Goal {
		it.Title = title
		it.Description = description
		return it
	})
}

func (g *Goals) patch(name, id string, fields map[string]any, fn func(models.Goal) models.Goal) Commit {
	uid := g.remoteUser()
	if uid == "" {
		return Noop
	}
	return Begin(g.log, Action{
		Name: name,
		Apply: func() (func(), bool) {
			return g.list.Update(id, fn)
		},
		Remote: func(ctx context.Context) (string, error) {
			id, err := g.list.Resolve(ctx, id)
			if err != nil {
				return "", err
			}
			return "", g.repo.Update(ctx, uid, id, fields)
		},
	})
}

func (g *Goals) Delete(id string) Commit {
	uid := g.remoteUser()
	if uid == "" {
		return Noop
	}
	return Begin(g.log, Action{
		Name: "delete goal",
		Apply: func() (func(), bool) {
			return g.list.Remove(id)
		},
		Remote: func(ctx context.Context) (string, error) {
			id, err := g.list.Resolve(ctx, id)
			if err != nil {
				return "", err
			}
			return "", g.repo.Delete(ctx, uid, id)
		},
	})
}
