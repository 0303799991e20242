package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/sadopc/tempo/internal/models"
)

type NoteCmd struct {
	Add  NoteAddCmd  `cmd:"" help:"Write a note."`
	List NoteListCmd `cmd:"" help:"List notes." default:"1"`
	Show NoteShowCmd `cmd:"" help:"Render a note."`
	Edit NoteEditCmd `cmd:"" help:"Change a note's title or content."`
	Rm   NoteRmCmd   `cmd:"" help:"Delete a note."`
}

type NoteAddCmd struct {
	Title   string `arg:"" help:"Note title."`
	Content string `arg:"" optional:"" help:"Markdown content."`
}

func (c *NoteAddCmd) Run(ctx *Context) error {
	ws, err := ctx.Workspace()
	if err != nil {
		return err
	}
	if strings.TrimSpace(c.Title) == "" {
		return fmt.Errorf("note title is required")
	}
	if err := ws.Notes.Create(c.Title, c.Content)(ctx.Ctx); err != nil {
		return err
	}
	fmt.Fprintf(ctx.Out, "Saved note %q\n", strings.TrimSpace(c.Title))
	return nil
}

type NoteListCmd struct{}

func (c *NoteListCmd) Run(ctx *Context) error {
	ws, err := ctx.Workspace()
	if err != nil {
		return err
	}
	notes := ws.Notes.Items()
	if len(notes) == 0 {
		empty(ctx.Out, "notes")
		return nil
	}
	tbl := newTable("#", "Date", "Title", "ID")
	for i, n := range notes {
		tbl.AddRow(strconv.Itoa(i+1), n.Date.String(), n.Title, faint.Sprint(shortID(n.ID)))
	}
	printTable(ctx.Out, tbl)
	return nil
}

type NoteShowCmd struct {
	Note  string `arg:"" help:"List position or id prefix."`
	Plain bool   `help:"Print the markdown source."`
}

func (c *NoteShowCmd) Run(ctx *Context) error {
	ws, err := ctx.Workspace()
	if err != nil {
		return err
	}
	n, err := resolve(ws.Notes.Items(), models.Note.Key, c.Note)
	if err != nil {
		return err
	}
	fmt.Fprintln(ctx.Out, bold.Sprint(n.Title), faint.Sprint(n.Date.String()))
	if c.Plain || strings.TrimSpace(n.Content) == "" {
		fmt.Fprintln(ctx.Out, n.Content)
		return nil
	}
	out, err := glamour.Render(n.Content, "auto")
	if err != nil {
		fmt.Fprintln(ctx.Out, n.Content)
		return nil
	}
	fmt.Fprint(ctx.Out, out)
	return nil
}

type NoteEditCmd struct {
	Note    string  `arg:"" help:"List position or id prefix."`
	Title   *string `help:"New title."`
	Content *string `help:"New markdown content."`
}

// Run edits the note and saves it at once instead of waiting for autosave.
func (c *NoteEditCmd) Run(ctx *Context) error {
	ws, err := ctx.Workspace()
	if err != nil {
		return err
	}
	n, err := resolve(ws.Notes.Items(), models.Note.Key, c.Note)
	if err != nil {
		return err
	}
	if c.Title == nil && c.Content == nil {
		return fmt.Errorf("nothing to change, pass --title or --content")
	}
	title, content := n.Title, n.Content
	if c.Title != nil {
		title = *c.Title
	}
	if c.Content != nil {
		content = *c.Content
	}
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("note title is required")
	}
	if !ws.Notes.Edit(n.ID, title, content) {
		return fmt.Errorf("note %s no longer exists", shortID(n.ID))
	}
	ws.Notes.Flush(ctx.Ctx)
	fmt.Fprintf(ctx.Out, "Updated note %q\n", strings.TrimSpace(title))
	return nil
}

type NoteRmCmd struct {
	Note string `arg:"" help:"List position or id prefix."`
}

func (c *NoteRmCmd) Run(ctx *Context) error {
	ws, err := ctx.Workspace()
	if err != nil {
		return err
	}
	n, err := resolve(ws.Notes.Items(), models.Note.Key, c.Note)
	if err != nil {
		return err
	}
	if err := ws.Notes.Delete(n.ID)(ctx.Ctx); err != nil {
		return err
	}
	fmt.Fprintf(ctx.Out, "Deleted note %q\n", n.Title)
	return nil
}
