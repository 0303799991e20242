package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sadopc/tempo/internal/models"
)

type TaskCmd struct {
	Add  TaskAddCmd  `cmd:"" help:"Add a task."`
	List TaskListCmd `cmd:"" help:"List tasks." default:"1"`
	Done TaskDoneCmd `cmd:"" help:"Toggle a task's completion."`
	Rm   TaskRmCmd   `cmd:"" help:"Delete a task."`
}

type TaskAddCmd struct {
	Text []string `arg:"" help:"Task text."`
}

func (c *TaskAddCmd) Run(ctx *Context) error {
	ws, err := ctx.Workspace()
	if err != nil {
		return err
	}
	text := strings.TrimSpace(strings.Join(c.Text, " "))
	if text == "" {
		return fmt.Errorf("task text is required")
	}
	if err := ws.Tasks.Add(text)(ctx.Ctx); err != nil {
		return err
	}
	fmt.Fprintf(ctx.Out, "Added %q\n", text)
	return nil
}

type TaskListCmd struct {
	Open bool `help:"Show only open tasks."`
}

func (c *TaskListCmd) Run(ctx *Context) error {
	ws, err := ctx.Workspace()
	if err != nil {
		return err
	}
	tasks := ws.Tasks.Items()
	if len(tasks) == 0 {
		empty(ctx.Out, "tasks")
		return nil
	}
	tbl := newTable("#", "", "Task", "ID")
	for i, t := range tasks {
		if c.Open && t.Completed {
			continue
		}
		tbl.AddRow(strconv.Itoa(i+1), mark(t.Completed), t.Text, faint.Sprint(shortID(t.ID)))
	}
	printTable(ctx.Out, tbl)
	return nil
}

type TaskDoneCmd struct {
	Task string `arg:"" help:"List position or id prefix."`
}

func (c *TaskDoneCmd) Run(ctx *Context) error {
	ws, err := ctx.Workspace()
	if err != nil {
		return err
	}
	t, err := resolve(ws.Tasks.Items(), models.Task.Key, c.Task)
	if err != nil {
		return err
	}
	if err := ws.Tasks.Toggle(t.ID)(ctx.Ctx); err != nil {
		return err
	}
	if t.Completed {
		fmt.Fprintf(ctx.Out, "Reopened %q\n", t.Text)
	} else {
		fmt.Fprintf(ctx.Out, "Completed %q (%d XP)\n", t.Text, ws.Progress.XP())
	}
	return nil
}

type TaskRmCmd struct {
	Task string `arg:"" help:"List position or id prefix."`
}

func (c *TaskRmCmd) Run(ctx *Context) error {
	ws, err := ctx.Workspace()
	if err != nil {
		return err
	}
	t, err := resolve(ws.Tasks.Items(), models.Task.Key, c.Task)
	if err != nil {
		return err
	}
	if err := ws.Tasks.Delete(t.ID)(ctx.Ctx); err != nil {
		return err
	}
	fmt.Fprintf(ctx.Out, "Deleted %q\n", t.Text)
	return nil
}
