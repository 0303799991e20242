package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sadopc/tempo/internal/models"
	"github.com/sadopc/tempo/internal/state"
)

type GoalCmd struct {
	Add  GoalAddCmd  `cmd:"" help:"Add a goal for the year."`
	List GoalListCmd `cmd:"" help:"List the year's goals." default:"1"`
	Done GoalDoneCmd `cmd:"" help:"Toggle a goal's completion."`
	Rm   GoalRmCmd   `cmd:"" help:"Delete a goal."`
}

// YearFlag selects the goal year.
type YearFlag struct {
	Year int `help:"Goal year. Defaults to the current year."`
}

func (f YearFlag) goals(ctx *Context) (*state.Workspace, error) {
	ws, err := ctx.signedIn()
	if err != nil {
		return nil, err
	}
	if f.Year != 0 && f.Year != ws.Goals.Year() {
		ws.Goals.Load(ctx.Ctx, f.Year)
	}
	return ws, nil
}

type GoalAddCmd struct {
	YearFlag
	Title       []string `arg:"" help:"Goal title."`
	Description string   `short:"d" help:"Longer description."`
}

func (c *GoalAddCmd) Run(ctx *Context) error {
	ws, err := c.goals(ctx)
	if err != nil {
		return err
	}
	title := strings.TrimSpace(strings.Join(c.Title, " "))
	if title == "" {
		return fmt.Errorf("goal title is required")
	}
	if err := ws.Goals.Create(title, c.Description)(ctx.Ctx); err != nil {
		return err
	}
	fmt.Fprintf(ctx.Out, "Added goal %q for %d\n", title, ws.Goals.Year())
	return nil
}

type GoalListCmd struct {
	YearFlag
}

func (c *GoalListCmd) Run(ctx *Context) error {
	ws, err := c.goals(ctx)
	if err != nil {
		return err
	}
	goals := ws.Goals.Items()
	if len(goals) == 0 {
		empty(ctx.Out, fmt.Sprintf("goals for %d", ws.Goals.Year()))
		return nil
	}
	done := 0
	tbl := newTable("#", "", "Goal", "Description", "ID")
	for i, g := range goals {
		if g.Completed {
			done++
		}
		tbl.AddRow(strconv.Itoa(i+1), mark(g.Completed), g.Title, g.Description, faint.Sprint(shortID(g.ID)))
	}
	fmt.Fprintf(ctx.Out, "%s  %d of %d done\n", bold.Sprintf("Goals %d", ws.Goals.Year()), done, len(goals))
	printTable(ctx.Out, tbl)
	return nil
}

type GoalDoneCmd struct {
	YearFlag
	Goal string `arg:"" help:"List position or id prefix."`
}

func (c *GoalDoneCmd) Run(ctx *Context) error {
	ws, err := c.goals(ctx)
	if err != nil {
		return err
	}
	g, err := resolve(ws.Goals.Items(), models.Goal.Key, c.Goal)
	if err != nil {
		return err
	}
	if err := ws.Goals.Toggle(g.ID)(ctx.Ctx); err != nil {
		return err
	}
	if g.Completed {
		fmt.Fprintf(ctx.Out, "Reopened %q\n", g.Title)
	} else {
		fmt.Fprintf(ctx.Out, "Completed %q\n", g.Title)
	}
	return nil
}

type GoalRmCmd struct {
	YearFlag
	Goal string `arg:"" help:"List position or id prefix."`
}

func (c *GoalRmCmd) Run(ctx *Context) error {
	ws, err := c.goals(ctx)
	if err != nil {
		return err
	}
	g, err := resolve(ws.Goals.Items(), models.Goal.Key, c.Goal)
	if err != nil {
		return err
	}
	if err := ws.Goals.Delete(g.ID)(ctx.Ctx); err != nil {
		return err
	}
	fmt.Fprintf(ctx.Out, "Deleted goal %q\n", g.Title)
	return nil
}
