package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alecthomas/kong"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/fatih/color"
	"github.com/zalando/go-keyring"
	"golang.org/x/crypto/bcrypt"

	"github.com/sadopc/tempo/internal/auth"
	"github.com/sadopc/tempo/internal/config"
	"github.com/sadopc/tempo/internal/models"
	"github.com/sadopc/tempo/internal/remote"
	"github.com/sadopc/tempo/internal/store"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// env is one user's machine: a config dir and a shared backend that
// outlives single invocations.
type env struct {
	dir     string
	config  string
	backend remote.Backend
}

func newEnv(t *testing.T) *env {
	t.Helper()
	keyring.MockInit()
	color.NoColor = true

	st, err := store.NewMemory()
	if err != nil {
		t.Fatalf("new memory store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	svc, err := auth.New(st, []byte(testSecret), auth.WithHashCost(bcrypt.MinCost))
	if err != nil {
		t.Fatalf("auth: %v", err)
	}
	dir := t.TempDir()
	return &env{
		dir:     dir,
		config:  filepath.Join(dir, "config.toml"),
		backend: remote.Compose(st, svc),
	}
}

// run executes one tempo invocation and returns its output.
func (e *env) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	var c CLI
	opts := append(Options("test"), kong.Writers(&out, &out), kong.Exit(func(int) {}))
	parser, err := kong.New(&c, opts...)
	if err != nil {
		t.Fatalf("kong: %v", err)
	}
	kctx, err := parser.Parse(append([]string{"--config", e.config}, args...))
	if err != nil {
		return out.String(), err
	}
	appCtx := &Context{
		Ctx:        context.Background(),
		ConfigPath: c.Config,
		Out:        &out,
		Backend:    e.backend,
		Prompt: func(string) (string, error) {
			return "", errors.New("unexpected prompt")
		},
	}
	err = kctx.Run(appCtx)
	if cerr := appCtx.Close(); err == nil {
		err = cerr
	}
	return out.String(), err
}

func (e *env) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := e.run(t, args...)
	if err != nil {
		t.Fatalf("tempo %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return out
}

func (e *env) signUp(t *testing.T) {
	t.Helper()
	e.mustRun(t, "signup", "ada@example.com", "--password", "correct horse")
}

// ============================================================
// resolve
// ============================================================

func TestResolve(t *testing.T) {
	tasks := []models.Task{
		{ID: "abc123", Text: "one"},
		{ID: "abd456", Text: "two"},
		{ID: "xyz789", Text: "three"},
	}

	tests := []struct {
		arg     string
		want    string
		wantErr bool
	}{
		{"1", "one", false},
		{"3", "three", false},
		{"abc", "one", false},
		{"xyz789", "three", false},
		{"ab", "", true},
		{"4", "", true},
		{"nope", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := resolve(tasks, models.Task.Key, tt.arg)
		if (err != nil) != tt.wantErr {
			t.Errorf("resolve(%q) err = %v, wantErr %v", tt.arg, err, tt.wantErr)
			continue
		}
		if err == nil && got.Text != tt.want {
			t.Errorf("resolve(%q) = %q, want %q", tt.arg, got.Text, tt.want)
		}
	}
}

func TestShortID(t *testing.T) {
	if got := shortID("0123456789"); got != "01234567" {
		t.Errorf("shortID = %q", got)
	}
	if got := shortID("abc"); got != "abc" {
		t.Errorf("shortID = %q", got)
	}
}

// ============================================================
// Tasks
// ============================================================

func TestTaskCommands(t *testing.T) {
	e := newEnv(t)

	e.mustRun(t, "task", "add", "write", "report")
	e.mustRun(t, "task", "add", "stretch")

	out := e.mustRun(t, "task", "list")
	if !strings.Contains(out, "write report") || !strings.Contains(out, "stretch") {
		t.Fatalf("list output missing tasks:\n%s", out)
	}
	// Newest first.
	if strings.Index(out, "stretch") > strings.Index(out, "write report") {
		t.Fatalf("tasks not listed newest first:\n%s", out)
	}

	out = e.mustRun(t, "task", "done", "2")
	if !strings.Contains(out, `Completed "write report"`) {
		t.Fatalf("done output = %q", out)
	}
	out = e.mustRun(t, "task", "list", "--open")
	if strings.Contains(out, "write report") {
		t.Fatalf("--open listed a completed task:\n%s", out)
	}

	out = e.mustRun(t, "xp")
	if !strings.Contains(out, "Level 1") || !strings.Contains(out, "10 XP") {
		t.Fatalf("xp output = %q", out)
	}

	e.mustRun(t, "task", "rm", "1")
	out = e.mustRun(t, "task")
	if strings.Contains(out, "stretch") {
		t.Fatalf("deleted task still listed:\n%s", out)
	}
}

func TestTaskAddRequiresText(t *testing.T) {
	e := newEnv(t)
	if _, err := e.run(t, "task", "add", " "); err == nil {
		t.Fatal("expected error for blank task")
	}
}

func TestTaskUnknownID(t *testing.T) {
	e := newEnv(t)
	if _, err := e.run(t, "task", "done", "7"); err == nil {
		t.Fatal("expected error for unknown task")
	}
}

func TestTaskListEmpty(t *testing.T) {
	e := newEnv(t)
	if out := e.mustRun(t, "task", "list"); !strings.Contains(out, "No tasks yet") {
		t.Fatalf("output = %q", out)
	}
}

// ============================================================
// Accounts
// ============================================================

func TestSignupWhoamiLogout(t *testing.T) {
	e := newEnv(t)

	if out := e.mustRun(t, "whoami"); !strings.Contains(out, "Not signed in") {
		t.Fatalf("whoami before signup = %q", out)
	}
	e.signUp(t)

	// The session survives into the next invocation.
	if out := e.mustRun(t, "whoami"); !strings.Contains(out, "ada@example.com") {
		t.Fatalf("whoami = %q", out)
	}

	e.mustRun(t, "logout")
	if out := e.mustRun(t, "whoami"); !strings.Contains(out, "Not signed in") {
		t.Fatalf("whoami after logout = %q", out)
	}

	out := e.mustRun(t, "login", "ada@example.com", "--password", "correct horse")
	if !strings.Contains(out, "Signed in as") {
		t.Fatalf("login output = %q", out)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	e := newEnv(t)
	e.signUp(t)
	e.mustRun(t, "logout")

	if _, err := e.run(t, "login", "ada@example.com", "--password", "wrong"); err == nil {
		t.Fatal("expected error for wrong password")
	}
}

func TestLoginPromptsForPassword(t *testing.T) {
	e := newEnv(t)
	e.signUp(t)
	e.mustRun(t, "logout")

	var c CLI
	parser, err := kong.New(&c, Options("test")...)
	if err != nil {
		t.Fatal(err)
	}
	kctx, err := parser.Parse([]string{"--config", e.config, "login", "ada@example.com"})
	if err != nil {
		t.Fatal(err)
	}
	var prompted string
	var out bytes.Buffer
	appCtx := &Context{
		ConfigPath: c.Config,
		Out:        &out,
		Backend:    e.backend,
		Prompt: func(title string) (string, error) {
			prompted = title
			return "correct horse", nil
		},
	}
	defer appCtx.Close()
	if err := kctx.Run(appCtx); err != nil {
		t.Fatalf("login: %v", err)
	}
	if !strings.Contains(prompted, "ada@example.com") {
		t.Errorf("prompt title = %q", prompted)
	}
}

func TestLogoutWhenSignedOut(t *testing.T) {
	e := newEnv(t)
	if out := e.mustRun(t, "logout"); !strings.Contains(out, "Not signed in") {
		t.Fatalf("output = %q", out)
	}
}

// ============================================================
// Habits
// ============================================================

func TestHabitsRequireSession(t *testing.T) {
	e := newEnv(t)
	_, err := e.run(t, "habit", "list")
	if err == nil || !strings.Contains(err.Error(), "not signed in") {
		t.Fatalf("err = %v", err)
	}
}

func TestHabitCommands(t *testing.T) {
	e := newEnv(t)
	e.signUp(t)

	e.mustRun(t, "habit", "add", "Meditate")
	e.mustRun(t, "habit", "add", "Water", "--target", "8", "--unit", "glasses")

	out := e.mustRun(t, "habit", "list")
	if !strings.Contains(out, "Meditate") || !strings.Contains(out, "0/8 glasses") {
		t.Fatalf("list output:\n%s", out)
	}

	// Water is newest, so Meditate is second.
	out = e.mustRun(t, "habit", "toggle", "2")
	if !strings.Contains(out, "[x] Meditate") {
		t.Fatalf("toggle output = %q", out)
	}
	out = e.mustRun(t, "habit", "toggle", "2")
	if !strings.Contains(out, "[-] Meditate") {
		t.Fatalf("second toggle output = %q", out)
	}

	out = e.mustRun(t, "habit", "log", "1", "8")
	if !strings.Contains(out, "8/8 glasses") {
		t.Fatalf("log output = %q", out)
	}
	if _, err := e.run(t, "habit", "toggle", "1"); err == nil {
		t.Fatal("toggle accepted a count habit")
	}

	e.mustRun(t, "habit", "rm", "1")
	if out := e.mustRun(t, "habit", "list"); strings.Contains(out, "Water") {
		t.Fatalf("deleted habit still listed:\n%s", out)
	}
}

func TestHabitAddValidation(t *testing.T) {
	e := newEnv(t)
	e.signUp(t)
	if _, err := e.run(t, "habit", "add", "Read", "--unit", "pages"); err == nil {
		t.Fatal("expected error for a unit without a target")
	}
}

func TestHabitLogRejectsFutureDate(t *testing.T) {
	e := newEnv(t)
	e.signUp(t)
	e.mustRun(t, "habit", "add", "Meditate")
	if _, err := e.run(t, "habit", "log", "1", "1", "--date", "2999-01-01"); err == nil {
		t.Fatal("expected error for a future date")
	}
	if _, err := e.run(t, "habit", "log", "1", "1", "--date", "yesterday"); err == nil {
		t.Fatal("expected error for a malformed date")
	}
}

// ============================================================
// Goals
// ============================================================

func TestGoalCommands(t *testing.T) {
	e := newEnv(t)
	e.signUp(t)

	e.mustRun(t, "goal", "add", "Run", "a", "marathon", "-d", "Under four hours")
	e.mustRun(t, "goal", "add", "Read 20 books", "--year", "2030")

	out := e.mustRun(t, "goal", "list")
	if !strings.Contains(out, "Run a marathon") || strings.Contains(out, "Read 20 books") {
		t.Fatalf("current year list:\n%s", out)
	}
	if !strings.Contains(out, "0 of 1 done") {
		t.Fatalf("summary missing:\n%s", out)
	}

	out = e.mustRun(t, "goal", "list", "--year", "2030")
	if !strings.Contains(out, "Read 20 books") {
		t.Fatalf("2030 list:\n%s", out)
	}

	e.mustRun(t, "goal", "done", "1")
	if out := e.mustRun(t, "goal", "list"); !strings.Contains(out, "1 of 1 done") {
		t.Fatalf("after done:\n%s", out)
	}

	e.mustRun(t, "goal", "rm", "1")
	if out := e.mustRun(t, "goal", "list"); !strings.Contains(out, "No goals") {
		t.Fatalf("after rm:\n%s", out)
	}
}

// ============================================================
// Notes
// ============================================================

func TestNoteCommands(t *testing.T) {
	e := newEnv(t)

	e.mustRun(t, "note", "add", "Ideas", "# list")
	out := e.mustRun(t, "note", "list")
	if !strings.Contains(out, "Ideas") {
		t.Fatalf("list:\n%s", out)
	}
	if out := e.mustRun(t, "note", "show", "1", "--plain"); !strings.Contains(out, "# list") {
		t.Fatalf("show:\n%s", out)
	}

	e.mustRun(t, "note", "edit", "1", "--content", "- tempo")
	if out := e.mustRun(t, "note", "show", "1", "--plain"); !strings.Contains(out, "- tempo") {
		t.Fatalf("edit was not saved:\n%s", out)
	}
	if _, err := e.run(t, "note", "edit", "1"); err == nil {
		t.Fatal("edit without changes should fail")
	}
	if _, err := e.run(t, "note", "edit", "1", "--title", " "); err == nil {
		t.Fatal("blank title should fail")
	}

	e.mustRun(t, "note", "rm", "1")
	if out := e.mustRun(t, "note"); !strings.Contains(out, "No notes yet") {
		t.Fatalf("after rm:\n%s", out)
	}
}

func TestNoteSyncsWhenSignedIn(t *testing.T) {
	e := newEnv(t)
	e.signUp(t)

	e.mustRun(t, "note", "add", "Ideas", "first")
	e.mustRun(t, "note", "edit", "1", "--content", "second")

	// A fresh machine sees the remote copy.
	other := &env{dir: t.TempDir(), backend: e.backend}
	other.config = filepath.Join(other.dir, "config.toml")
	keyring.MockInit()
	other.mustRun(t, "login", "ada@example.com", "--password", "correct horse")
	if out := other.mustRun(t, "note", "show", "1", "--plain"); !strings.Contains(out, "second") {
		t.Fatalf("remote note:\n%s", out)
	}
}

// ============================================================
// Export and config
// ============================================================

func TestExport(t *testing.T) {
	e := newEnv(t)
	e.mustRun(t, "task", "add", "stretch")

	jsonPath := filepath.Join(e.dir, "out.json")
	e.mustRun(t, "export", "-o", jsonPath)
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "stretch") {
		t.Fatalf("json export missing task:\n%s", data)
	}

	csvPath := filepath.Join(e.dir, "out.csv")
	e.mustRun(t, "export", "--format", "csv", "-o", csvPath)
	if _, err := os.Stat(csvPath); err != nil {
		t.Fatalf("csv export: %v", err)
	}

	if _, err := e.run(t, "export", "--format", "xml"); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestConfigCommandMasksSecret(t *testing.T) {
	e := newEnv(t)
	if err := os.WriteFile(e.config, []byte("[auth]\nsecret = \"supersecretvalue1234\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	out := e.mustRun(t, "config")
	if strings.Contains(out, "supersecretvalue1234") {
		t.Fatalf("secret printed:\n%s", out)
	}
	if !strings.Contains(out, e.config) || !strings.Contains(out, "[backend]") {
		t.Fatalf("config output:\n%s", out)
	}
}

func TestInvalidConfig(t *testing.T) {
	e := newEnv(t)
	if err := os.WriteFile(e.config, []byte("[backend]\nkind = \"floppy\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := e.run(t, "task", "list"); err == nil {
		t.Fatal("expected error for unknown backend kind")
	}
}

func TestServeRejectsHTTPBackend(t *testing.T) {
	e := newEnv(t)
	if err := os.WriteFile(e.config, []byte("[backend]\nkind = \"http\"\nhttp_url = \"http://127.0.0.1:1\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	e.backend = nil
	if _, err := e.run(t, "serve"); err == nil {
		t.Fatal("serve accepted the http backend")
	}
}

// ============================================================
// OpenBackend
// ============================================================

func TestOpenBackendSQLite(t *testing.T) {
	cfg := config.Default()
	cfg.Backend.SQLitePath = filepath.Join(t.TempDir(), "tempo.db")

	b, err := OpenBackend(context.Background(), cfg)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer b.Close()

	sess, err := b.SignUp(context.Background(), "ada@example.com", "correct horse")
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}
	if _, err := b.Session(context.Background(), sess.Token); err != nil {
		t.Fatalf("session: %v", err)
	}
}

func TestOpenBackendRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()

	cfg := config.Default()
	cfg.Backend.Kind = config.BackendRedis
	cfg.Backend.RedisURL = "redis://" + mr.Addr()
	cfg.Auth.Secret = testSecret

	b, err := OpenBackend(context.Background(), cfg)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer b.Close()

	sess, err := b.SignUp(context.Background(), "ada@example.com", "correct horse")
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}
	doc, err := b.Create(context.Background(), remote.Tasks, remote.Document{
		UserID: sess.UserID,
		Fields: map[string]any{"text": "stretch"},
	})
	if err != nil || doc.ID == "" {
		t.Fatalf("create: %v %+v", err, doc)
	}
}

func TestOpenBackendHTTP(t *testing.T) {
	cfg := config.Default()
	cfg.Backend.Kind = config.BackendHTTP
	cfg.Backend.HTTPURL = "http://127.0.0.1:7878"

	b, err := OpenBackend(context.Background(), cfg)
	if err != nil || b == nil {
		t.Fatalf("open: %v", err)
	}
	b.Close()

	cfg.Backend.HTTPURL = "not a url"
	if b, err := OpenBackend(context.Background(), cfg); err == nil || b != nil {
		t.Fatal("accepted a bad url")
	}
}

func TestOpenBackendUnknown(t *testing.T) {
	cfg := config.Default()
	cfg.Backend.Kind = "floppy"
	if _, err := OpenBackend(context.Background(), cfg); err == nil {
		t.Fatal("expected error")
	}
}

func TestWorkspaceOfflineWhenBackendFails(t *testing.T) {
	keyring.MockInit()
	color.NoColor = true
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.toml")
	// A redis URL nobody listens on.
	body := "[backend]\nkind = \"redis\"\nredis_url = \"redis://127.0.0.1:1\"\n[auth]\nsecret = \"" + testSecret + "\"\n"
	if err := os.WriteFile(cfgPath, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	ctx := &Context{ConfigPath: cfgPath, Out: &out}
	defer ctx.Close()

	ws, err := ctx.Workspace()
	if err != nil {
		t.Fatalf("workspace: %v", err)
	}
	if ctx.Backend != nil {
		t.Fatal("backend should be nil after a failed open")
	}
	if err := ws.Tasks.Add("offline task")(context.Background()); err != nil {
		t.Fatalf("offline add: %v", err)
	}
	if len(ws.Tasks.Items()) != 1 {
		t.Fatal("offline task not kept")
	}
}
