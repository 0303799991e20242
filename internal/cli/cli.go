package cli

import "github.com/alecthomas/kong"

// CLI is the tempo command tree.
type CLI struct {
	Version kong.VersionFlag `help:"Print the version."`
	Config  string           `help:"Config file path. Defaults to TEMPO_CONFIG or the user config dir." type:"path"`
	Debug   bool             `help:"Log at debug level to stderr."`

	Tui    TuiCmd    `cmd:"" help:"Launch the interactive TUI." default:"1"`
	Serve  ServeCmd  `cmd:"" help:"Serve the configured backend over HTTP."`
	Signup SignupCmd `cmd:"" help:"Create an account and sign in."`
	Login  LoginCmd  `cmd:"" help:"Sign in."`
	Logout LogoutCmd `cmd:"" help:"Sign out."`
	Whoami WhoamiCmd `cmd:"" help:"Show the signed-in account."`
	Task   TaskCmd   `cmd:"" help:"Manage tasks."`
	Habit  HabitCmd  `cmd:"" help:"Track habits."`
	Goal   GoalCmd   `cmd:"" help:"Manage yearly goals."`
	Note   NoteCmd   `cmd:"" help:"Manage notes."`
	XP     XPCmd     `cmd:"" name:"xp" help:"Show level and experience."`
	Export ExportCmd `cmd:"" help:"Export data to CSV or JSON."`
	Cfg    ConfigCmd `cmd:"" name:"config" help:"Print the resolved configuration."`
}

// Options returns the kong options shared by main and the tests.
func Options(version string) []kong.Option {
	return []kong.Option{
		kong.Name("tempo"),
		kong.Description("Tasks, habits, goals, notes and a pomodoro timer in the terminal."),
		kong.UsageOnError(),
		kong.Vars{"version": version},
	}
}
