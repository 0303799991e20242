package state

import (
	"context"
	"sort"
	"strings"

	"github.com/sadopc/tempo/internal/dates"
	"github.com/sadopc/tempo/internal/mirror"
	"github.com/sadopc/tempo/internal/models"
	"github.com/sadopc/tempo/internal/remote"
)

// Habits holds habits and their daily logs. Every mutation needs a session.
type Habits struct {
	loadFlag
	env
	habits  *List[models.Habit]
	logs    *List[models.HabitLog]
	repo    *remote.Repo[models.Habit]
	logRepo *remote.Repo[models.HabitLog]
}

func newHabits(e env) *Habits {
	h := &Habits{
		env:    e,
		habits: NewList[models.Habit](e.mirror, mirror.KeyHabits, e.log),
		logs:   NewList[models.HabitLog](e.mirror, mirror.KeyHabitLogs, e.log),
	}
	if e.docs != nil {
		h.repo = remote.NewRepo[models.Habit](e.docs, remote.Habits)
		h.logRepo = remote.NewRepo[models.HabitLog](e.docs, remote.HabitLogs)
	}
	return h
}

func (h *Habits) Items() []models.Habit { return h.habits.Items() }

func (h *Habits) Find(id string) (models.Habit, bool) { return h.habits.Find(id) }

// AllLogs returns every log of every habit.
func (h *Habits) AllLogs() []models.HabitLog { return h.logs.Items() }

func (h *Habits) Load(ctx context.Context) {
	load(ctx, h.env, &h.loadFlag, h.habits, string(remote.Habits), func(ctx context.Context, uid string) ([]models.Habit, error) {
		return h.repo.List(ctx, remote.Filter{UserID: uid})
	})
	load(ctx, h.env, &h.loadFlag, h.logs, string(remote.HabitLogs), func(ctx context.Context, uid string) ([]models.HabitLog, error) {
		return h.logRepo.List(ctx, remote.Filter{UserID: uid})
	})
}

func (h *Habits) Reset() {
	h.habits.Reset()
	h.logs.Reset()
}

// Create adds a daily, active habit. Count habits need a non-negative target.
func (h *Habits) Create(habit models.Habit) Commit {
	uid := h.remoteUser()
	habit.Name = strings.TrimSpace(habit.Name)
	if uid == "" || habit.Name == "" || !habit.Kind.Valid() || habit.Target < 0 {
		return Noop
	}
	if habit.Kind == models.HabitBoolean {
		habit.Unit = ""
		habit.Target = 0
	}
	habit.ID = models.NewPlaceholderID()
	habit.UserID = uid
	habit.Frequency = models.FrequencyDaily
	habit.Active = true
	habit.CreatedAt = h.now().UTC()

	return Begin(h.log, Action{
		Name: "create habit",
		Apply: func() (func(), bool) {
			return h.habits.Insert(habit, true), true
		},
		Remote: func(ctx context.Context) (string, error) {
			created, err := h.repo.Create(ctx, uid, habit)
			return created.ID, err
		},
		Reconcile: func(id string) {
			h.habits.Reconcile(habit.ID, id)
			h.relink(habit.ID, id)
		},
	})
}

// relink points logs written against a placeholder habit id at the minted id.
func (h *Habits) relink(placeholder, id string) {
	h.logs.Swap(func(items []models.HabitLog) ([]models.HabitLog, bool) {
		changed := false
		for i := range items {
			if items[i].HabitID == placeholder {
				items[i].HabitID = id
				changed = true
			}
		}
		return items, changed
	})
	h.logs.Persist()
}

// Delete removes a habit with all of its logs. Only the habit delete decides
// success; remote logs that cannot be deleted are logged and ignored.
func (h *Habits) Delete(id string) Commit {
	uid := h.remoteUser()
	if uid == "" {
		return Noop
	}
	habit, ok := h.habits.Find(id)
	if !ok {
		return Noop
	}
	owned := func(l models.HabitLog) bool { return l.HabitID == id || l.HabitID == habit.ID }
	var dropped []models.HabitLog
	for _, l := range h.logs.Items() {
		if owned(l) {
			dropped = append(dropped, l)
		}
	}
	return Begin(h.log, Action{
		Name: "delete habit",
		Apply: func() (func(), bool) {
			undoHabit, ok := h.habits.Remove(habit.ID)
			if !ok {
				return nil, false
			}
			undoLogs, _ := h.logs.RemoveWhere(owned)
			return undoAll(undoHabit, undoLogs), true
		},
		Remote: func(ctx context.Context) (string, error) {
			habitID, err := h.habits.Resolve(ctx, habit.ID)
			if err != nil {
				return "", err
			}
			if err := h.repo.Delete(ctx, uid, habitID); err != nil {
				return "", err
			}
			h.deleteLogs(ctx, uid, habitID, dropped)
			return "", nil
		},
	})
}

// deleteLogs removes the remote copies of a deleted habit's logs.
func (h *Habits) deleteLogs(ctx context.Context, uid, habitID string, logs []models.HabitLog) {
	for _, l := range logs {
		id, err := h.logs.Resolve(ctx, l.ID)
		if err != nil || models.IsPlaceholder(id) {
			continue
		}
		if err := h.logRepo.Delete(ctx, uid, id); err != nil {
			h.log.Warn("habit log delete failed", "habit", habitID, "id", id, "err", err)
		}
	}
}

// LogFor returns the log of habitID on day.
func (h *Habits) LogFor(habitID string, day dates.Day) (models.HabitLog, bool) {
	for _, l := range h.logs.Items() {
		if l.HabitID == habitID && l.Date == day {
			return l, true
		}
	}
	return models.HabitLog{}, false
}

// Logs returns the logs of habitID, oldest first.
func (h *Habits) Logs(habitID string) []models.HabitLog {
	var out []models.HabitLog
	for _, l := range h.logs.Items() {
		if l.HabitID == habitID {
			out = append(out, l)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// Toggle cycles a boolean habit's day through unset, done, not done and
// back to unset.
func (h *Habits) Toggle(habitID string, day dates.Day) Commit {
	habit, ok := h.habits.Find(habitID)
	if !ok || habit.Kind != models.HabitBoolean || day.IsZero() {
		return Noop
	}
	existing, found := h.LogFor(habitID, day)
	switch {
	case !found:
		return h.createLog(habit, day, 1)
	case existing.Completed:
		return h.updateLog(existing, 0, false)
	default:
		return h.deleteLog(existing)
	}
}

// Log records value for a day, replacing any earlier value for that day.
func (h *Habits) Log(habitID string, day dates.Day, value float64) Commit {
	habit, ok := h.habits.Find(habitID)
	if !ok || value < 0 || day.IsZero() {
		return Noop
	}
	return h.setValue(habit, day, value)
}

// Increment adds amount to today's log of a count habit. The most recent log
// is only added to when it is dated today; otherwise today starts at amount.
func (h *Habits) Increment(habitID string, amount float64) Commit {
	habit, ok := h.habits.Find(habitID)
	if !ok || habit.Kind != models.HabitCount || amount <= 0 {
		return Noop
	}
	today := dates.Today(h.now)
	value := amount
	if logs := h.Logs(habitID); len(logs) > 0 {
		if latest := logs[len(logs)-1]; latest.Date == today {
			value = latest.Value + amount
		}
	}
	return h.setValue(habit, today, value)
}

func (h *Habits) setValue(habit models.Habit, day dates.Day, value float64) Commit {
	if existing, found := h.LogFor(habit.ID, day); found {
		return h.updateLog(existing, value, habit.Completes(value))
	}
	return h.createLog(habit, day, value)
}

func (h *Habits) createLog(habit models.Habit, day dates.Day, value float64) Commit {
	uid := h.remoteUser()
	if uid == "" {
		return Noop
	}
	entry := models.HabitLog{
		ID:        models.NewPlaceholderID(),
		HabitID:   habit.ID,
		UserID:    uid,
		Date:      day,
		Value:     value,
		Completed: habit.Completes(value),
	}
	return Begin(h.log, Action{
		Name: "log habit",
		Apply: func() (func(), bool) {
			return h.logs.Insert(entry, true), true
		},
		Remote: func(ctx context.Context) (string, error) {
			habitID, err := h.habits.Resolve(ctx, entry.HabitID)
			if err != nil {
				return "", err
			}
			if habitID != entry.HabitID {
				h.relink(entry.HabitID, habitID)
			}
			sent := entry
			sent.HabitID = habitID
			created, err := h.logRepo.Create(ctx, uid, sent)
			return created.ID, err
		},
		Reconcile: func(id string) { h.logs.Reconcile(entry.ID, id) },
	})
}

func (h *Habits) updateLog(entry models.HabitLog, value float64, completed bool) Commit {
	uid := h.remoteUser()
	if uid == "" {
		return Noop
	}
	return Begin(h.log, Action{
		Name: "update habit log",
		Apply: func() (func(), bool) {
			return h.logs.Update(entry.ID, func(l models.HabitLog) models.HabitLog {
				l.Value = value
				l.Completed = completed
				return l
			})
		},
		Remote: func(ctx context.Context) (string, error) {
			id, err := h.logs.Resolve(ctx, entry.ID)
			if err != nil {
				return "", err
			}
			return "", h.logRepo.Update(ctx, uid, id, map[string]any{
				"value":     value,
				"completed": completed,
			})
		},
	})
}

func (h *Habits) deleteLog(entry models.HabitLog) Commit {
	uid := h.remoteUser()
	if uid == "" {
		return Noop
	}
	return Begin(h.log, Action{
		Name: "delete habit log",
		Apply: func() (func(), bool) {
			return h.logs.Remove(entry.ID)
		},
		Remote: func(ctx context.Context) (string, error) {
			id, err := h.logs.Resolve(ctx, entry.ID)
			if err != nil {
				return "", err
			}
			return "", h.logRepo.Delete(ctx, uid, id)
		},
	})
}

// Streak counts consecutive completed days ending today, or ending yesterday
// when today is not completed yet.
func (h *Habits) Streak(habitID string) int {
	done := map[dates.Day]bool{}
	for _, l := range h.logs.Items() {
		if l.HabitID == habitID && l.Completed {
			done[l.Date] = true
		}
	}
	return Streak(done, dates.Today(h.now))
}

// Streak is the current streak over a set of completed days.
func Streak(done map[dates.Day]bool, today dates.Day) int {
	day := today
	if !done[day] {
		day = day.AddDays(-1)
	}
	n := 0
	for done[day] {
		n++
		day = day.AddDays(-1)
	}
	return n
}

// CompletedOn counts the habits completed on day.
func (h *Habits) CompletedOn(day dates.Day) int {
	n := 0
	for _, l := range h.logs.Items() {
		if l.Date == day && l.Completed {
			n++
		}
	}
	return n
}
