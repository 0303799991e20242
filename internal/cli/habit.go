package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sadopc/tempo/internal/dates"
	"github.com/sadopc/tempo/internal/models"
)

type HabitCmd struct {
	Add    HabitAddCmd    `cmd:"" help:"Create a habit."`
	List   HabitListCmd   `cmd:"" help:"List habits with today's progress." default:"1"`
	Toggle HabitToggleCmd `cmd:"" help:"Cycle a yes/no habit through done, missed and unset."`
	Log    HabitLogCmd    `cmd:"" help:"Record a value for a day."`
	Rm     HabitRmCmd     `cmd:"" help:"Delete a habit and its history."`
}

type HabitAddCmd struct {
	Name   []string `arg:"" help:"Habit name."`
	Target float64  `help:"Daily target. Makes this a count habit."`
	Unit   string   `help:"Unit of the count, such as glasses or pages."`
}

func (c *HabitAddCmd) Run(ctx *Context) error {
	ws, err := ctx.signedIn()
	if err != nil {
		return err
	}
	h := models.Habit{Name: strings.Join(c.Name, " "), Kind: models.HabitBoolean}
	if c.Target != 0 || c.Unit != "" {
		if c.Target <= 0 {
			return fmt.Errorf("--target must be positive for a count habit")
		}
		h.Kind = models.HabitCount
		h.Target = c.Target
		h.Unit = c.Unit
	}
	if strings.TrimSpace(h.Name) == "" {
		return fmt.Errorf("habit name is required")
	}
	if err := ws.Habits.Create(h)(ctx.Ctx); err != nil {
		return err
	}
	fmt.Fprintf(ctx.Out, "Created habit %q\n", strings.TrimSpace(h.Name))
	return nil
}

type HabitListCmd struct{}

func (c *HabitListCmd) Run(ctx *Context) error {
	ws, err := ctx.signedIn()
	if err != nil {
		return err
	}
	habits := ws.Habits.Items()
	if len(habits) == 0 {
		empty(ctx.Out, "habits")
		return nil
	}
	today := dates.Today(ctx.Now)
	tbl := newTable("#", "Today", "Habit", "Streak", "ID")
	for i, h := range habits {
		entry, logged := ws.Habits.LogFor(h.ID, today)
		tbl.AddRow(strconv.Itoa(i+1), habitStatus(h, entry, logged), h.Name,
			strconv.Itoa(ws.Habits.Streak(h.ID)), faint.Sprint(shortID(h.ID)))
	}
	printTable(ctx.Out, tbl)
	return nil
}

func habitStatus(h models.Habit, entry models.HabitLog, logged bool) string {
	if h.Kind == models.HabitCount {
		v := 0.0
		if logged {
			v = entry.Value
		}
		s := fmt.Sprintf("%s/%s %s", formatNumber(v), formatNumber(h.Target), h.Unit)
		if logged && entry.Completed {
			return green.Sprint(strings.TrimSpace(s))
		}
		return strings.TrimSpace(s)
	}
	switch {
	case !logged:
		return "[ ]"
	case entry.Completed:
		return green.Sprint("[x]")
	}
	return "[-]"
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// dayFlag parses an optional YYYY-MM-DD, defaulting to today.
func dayFlag(ctx *Context, s string) (dates.Day, error) {
	if s == "" {
		return dates.Today(ctx.Now), nil
	}
	d, err := dates.Parse(s)
	if err != nil {
		return dates.Day{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", s)
	}
	if d.After(dates.Today(ctx.Now)) {
		return dates.Day{}, fmt.Errorf("%s is in the future", d)
	}
	return d, nil
}

type HabitToggleCmd struct {
	Habit string `arg:"" help:"List position or id prefix."`
	Date  string `help:"Day to toggle (YYYY-MM-DD). Defaults to today."`
}

func (c *HabitToggleCmd) Run(ctx *Context) error {
	ws, err := ctx.signedIn()
	if err != nil {
		return err
	}
	h, err := resolve(ws.Habits.Items(), models.Habit.Key, c.Habit)
	if err != nil {
		return err
	}
	if h.Kind != models.HabitBoolean {
		return fmt.Errorf("%q is a count habit, use `tempo habit log`", h.Name)
	}
	day, err := dayFlag(ctx, c.Date)
	if err != nil {
		return err
	}
	if err := ws.Habits.Toggle(h.ID, day)(ctx.Ctx); err != nil {
		return err
	}
	entry, logged := ws.Habits.LogFor(h.ID, day)
	fmt.Fprintf(ctx.Out, "%s %s on %s\n", habitStatus(h, entry, logged), h.Name, day)
	return nil
}

type HabitLogCmd struct {
	Habit string  `arg:"" help:"List position or id prefix."`
	Value float64 `arg:"" help:"Value for the day."`
	Date  string  `help:"Day to log (YYYY-MM-DD). Defaults to today."`
}

func (c *HabitLogCmd) Run(ctx *Context) error {
	ws, err := ctx.signedIn()
	if err != nil {
		return err
	}
	h, err := resolve(ws.Habits.Items(), models.Habit.Key, c.Habit)
	if err != nil {
		return err
	}
	if c.Value < 0 {
		return fmt.Errorf("value must not be negative")
	}
	day, err := dayFlag(ctx, c.Date)
	if err != nil {
		return err
	}
	if err := ws.Habits.Log(h.ID, day, c.Value)(ctx.Ctx); err != nil {
		return err
	}
	entry, logged := ws.Habits.LogFor(h.ID, day)
	fmt.Fprintf(ctx.Out, "%s %s on %s\n", habitStatus(h, entry, logged), h.Name, day)
	return nil
}

type HabitRmCmd struct {
	Habit string `arg:"" help:"List position or id prefix."`
}

func (c *HabitRmCmd) Run(ctx *Context) error {
	ws, err := ctx.signedIn()
	if err != nil {
		return err
	}
	h, err := resolve(ws.Habits.Items(), models.Habit.Key, c.Habit)
	if err != nil {
		return err
	}
	if err := ws.Habits.Delete(h.ID)(ctx.Ctx); err != nil {
		return err
	}
	fmt.Fprintf(ctx.Out, "Deleted habit %q\n", h.Name)
	return nil
}
