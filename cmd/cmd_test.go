package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/firefly-engineering/realm/internal/app"
	"github.com/firefly-engineering/realm/internal/errors"
	"github.com/firefly-engineering/realm/internal/logging"
	"github.com/firefly-engineering/realm/internal/sandbox"
	"github.com/firefly-engineering/realm/internal/ssh"
	"github.com/firefly-engineering/realm/internal/testutil"
	"github.com/firefly-engineering/realm/internal/tui"
)

type noSSH struct{}

func (noSSH) Resolve(bool) (*ssh.Plan, error) { return nil, ssh.ErrDisabled }

// setupTestEnv points the commands at a temp state root with a mock runtime.
func setupTestEnv(t *testing.T) *testutil.TestEnv {
	t.Helper()

	env := testutil.NewTestEnv(t)
	env.Settings.SSH = false
	env.Settings.MountGitconfig = false

	prevApp, prevInteractive, prevPicker := newApp, interactive, runPicker
	newApp = func() (*app.App, error) {
		return app.New(
			app.WithSettings(env.Settings),
			app.WithPaths(env.Paths),
			app.WithRuntime(env.Runtime),
			app.WithRegistry(env.Registry),
			app.WithProvisioner(env.Provisioner),
			app.WithForwarder(noSSH{}),
		)
	}
	interactive = func() bool { return false }
	t.Cleanup(func() {
		newApp, interactive, runPicker = prevApp, prevInteractive, prevPicker
	})
	return env
}

func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if f.Value.Type() != "stringArray" {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func executeCommand(args ...string) (string, string, error) {
	// Reset flag values before each test
	resetFlags(rootCmd)
	sessionEnv = nil
	exitCode = 0

	// A nil slice makes cobra fall back to os.Args.
	if args == nil {
		args = []string{}
	}

	cmd := rootCmd
	cmd.SetArgs(args)

	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	prevOut, prevErr := logging.Stdout, logging.Stderr
	logging.Stdout, logging.Stderr = &stdout, &stderr

	err := cmd.Execute()

	// Reset args for next test
	cmd.SetArgs(nil)
	cmd.SetOut(nil)
	cmd.SetErr(nil)
	logging.Stdout, logging.Stderr = prevOut, prevErr

	return stdout.String(), stderr.String(), err
}

func TestRootCommand_Help(t *testing.T) {
	stdout, _, err := executeCommand("--help")
	if err != nil {
		t.Fatalf("Help command failed: %v", err)
	}

	for _, want := range []string{"realm", "session", "--detach", "--runtime-args", "--recreate"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("Help output should contain %q", want)
		}
	}
}

func TestRootCommand_ListsCommands(t *testing.T) {
	stdout, _, err := executeCommand("help")
	if err != nil {
		t.Fatalf("Help command failed: %v", err)
	}

	for _, name := range []string{"ls", "stop", "rm", "path", "gc", "log", "pick", "runtime"} {
		if !strings.Contains(stdout, name) {
			t.Errorf("Help output should list %s", name)
		}
	}
}

func TestGlobalFlags(t *testing.T) {
	stdout, _, err := executeCommand("--help")
	if err != nil {
		t.Fatalf("Help failed: %v", err)
	}

	if !strings.Contains(stdout, "--verbose") {
		t.Error("Should have --verbose flag")
	}

	if !strings.Contains(stdout, "--log-format") {
		t.Error("Should have --log-format flag")
	}
}

func TestCommandRequiresArgs(t *testing.T) {
	tests := []string{"stop", "path", "rm", "log"}

	for _, name := range tests {
		t.Run(name, func(t *testing.T) {
			_, _, err := executeCommand(name)
			if err == nil {
				t.Errorf("%s without a name should fail", name)
			}
		})
	}
}

func TestSplitSessionArgs(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		wantName    string
		wantCommand []string
		wantErr     bool
	}{
		{"name only", []string{"alpha"}, "alpha", nil, false},
		{"command after dash", []string{"alpha", "--", "make", "test"}, "alpha", []string{"make", "test"}, false},
		{"command without dash", []string{"alpha", "make"}, "", nil, true},
		{"dash before name", []string{"--", "alpha"}, "", nil, true},
		{"two names", []string{"alpha", "beta", "--", "ls"}, "", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &cobra.Command{Use: "x", Args: cobra.ArbitraryArgs, RunE: func(*cobra.Command, []string) error { return nil }}
			if err := c.ParseFlags(tt.args); err != nil {
				t.Fatalf("ParseFlags() error = %v", err)
			}

			name, command, err := splitSessionArgs(c, c.Flags().Args())
			if (err != nil) != tt.wantErr {
				t.Fatalf("splitSessionArgs() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if errors.GetExitCode(err) != errors.ExitInvalidInput {
					t.Errorf("exit code = %d, want %d", errors.GetExitCode(err), errors.ExitInvalidInput)
				}
				return
			}
			if name != tt.wantName {
				t.Errorf("name = %q, want %q", name, tt.wantName)
			}
			if strings.Join(command, " ") != strings.Join(tt.wantCommand, " ") {
				t.Errorf("command = %v, want %v", command, tt.wantCommand)
			}
		})
	}
}

func TestSessionOptions_Validation(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"relative mount", []string{"alpha", "--mount", "work"}},
		{"env without key", []string{"alpha", "-e", "=bar"}},
		{"unbalanced runtime args", []string{"alpha", "--runtime-args", `--label "x`}},
		{"image without name", []string{"--image", "alpine"}},
		{"detach without name", []string{"-d"}},
		{"no-ssh without name", []string{"--no-ssh"}},
		{"env without name", []string{"-e", "FOO=bar"}},
		{"invalid log format", []string{"alpha", "--log-format", "xml"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestEnv(t)
			_, _, err := executeCommand(tt.args...)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if got := errors.GetExitCode(err); got != errors.ExitInvalidInput {
				t.Errorf("exit code = %d, want %d (error: %v)", got, errors.ExitInvalidInput, err)
			}
			if env.Runtime.Count() != 0 {
				t.Error("no container should be created")
			}
		})
	}
}

func TestOnlyGlobalFlags(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want bool
	}{
		{"no flags", nil, true},
		{"verbose", []string{"--verbose"}, true},
		{"log format", []string{"--log-format", "json"}, true},
		{"image", []string{"--image", "alpine"}, false},
		{"detach", []string{"-d"}, false},
		{"docker args alias", []string{"--docker-args", "--rm"}, false},
		{"verbose and recreate", []string{"-v", "--recreate"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetFlags(rootCmd)
			if err := rootCmd.ParseFlags(tt.args); err != nil {
				t.Fatalf("ParseFlags() error = %v", err)
			}
			defer resetFlags(rootCmd)

			if got := onlyGlobalFlags(rootCmd); got != tt.want {
				t.Errorf("onlyGlobalFlags() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRootWithoutName_GlobalFlagsOpenBrowser(t *testing.T) {
	setupTestEnv(t)

	stdout, _, err := executeCommand("--verbose", "--log-format", "json")
	if err != nil {
		t.Fatalf("realm with only global flags failed: %v", err)
	}
	if !strings.Contains(stdout, "realm - Sessions") {
		t.Errorf("listing = %q", stdout)
	}
}

func TestCreateDetached(t *testing.T) {
	env := setupTestEnv(t)
	repo := env.CreateRepo("alpha")

	stdout, _, err := executeCommand("alpha", "-d", "--project", repo,
		"--image", "alpine:3", "-e", "FOO=bar", "--docker-args", "--label team=core")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if !strings.Contains(stdout, "Created session alpha") {
		t.Errorf("stdout = %q, want created message", stdout)
	}

	s := env.GetSession("alpha")
	if s == nil {
		t.Fatal("session was not recorded")
	}
	if s.Image != "alpine:3" {
		t.Errorf("Image = %q, want alpine:3", s.Image)
	}
	if strings.Join(s.Options.RuntimeArgs, " ") != "--label team=core" {
		t.Errorf("RuntimeArgs = %v, want the --docker-args value", s.Options.RuntimeArgs)
	}

	c := env.Runtime.ContainerByName("realm-alpha")
	if c == nil {
		t.Fatal("container realm-alpha was not created")
	}
	found := false
	for _, e := range c.Options.Env {
		if e == "FOO=bar" {
			found = true
		}
	}
	if !found {
		t.Errorf("container env %v should contain FOO=bar", c.Options.Env)
	}
	if len(env.Runtime.GetCallsFor("Attach")) != 0 {
		t.Error("detached create should not attach")
	}
}

func TestCreate_EnvPassthrough(t *testing.T) {
	env := setupTestEnv(t)
	repo := env.CreateRepo("alpha")

	if _, _, err := executeCommand("alpha", "-d", "--project", repo, "-e", "FOO=bar", "-e", "BAZ"); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	s := env.GetSession("alpha")
	if s == nil {
		t.Fatal("session was not recorded")
	}
	for _, want := range []string{"FOO=bar", "BAZ"} {
		found := false
		for _, e := range s.Options.Env {
			if e == want {
				found = true
			}
		}
		if !found {
			t.Errorf("stored env %v should contain %q", s.Options.Env, want)
		}
	}
}

func TestResumeWarnsAboutIgnoredOptions(t *testing.T) {
	env := setupTestEnv(t)
	repo := env.CreateRepo("alpha")

	if _, _, err := executeCommand("alpha", "-d", "--project", repo); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	_, stderr, err := executeCommand("alpha", "-d", "--image", "debian")
	if err != nil {
		t.Fatalf("resume failed: %v", err)
	}
	if !strings.Contains(stderr, "Ignoring image") {
		t.Errorf("stderr = %q, want ignored image warning", stderr)
	}
	if s := env.GetSession("alpha"); s.Image == "debian" {
		t.Error("image must not change on resume")
	}
}

func TestExecute_PropagatesExitCode(t *testing.T) {
	env := setupTestEnv(t)
	repo := env.CreateRepo("alpha")
	env.Runtime.AttachExitCode = 3

	resetFlags(rootCmd)
	sessionEnv = nil
	rootCmd.SetArgs([]string{"alpha", "--project", repo})
	var out bytes.Buffer
	prevOut := logging.Stdout
	logging.Stdout = &out
	defer func() {
		rootCmd.SetArgs(nil)
		logging.Stdout = prevOut
	}()

	code, err := Execute()
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if code != 3 {
		t.Errorf("Execute() code = %d, want 3", code)
	}
}

func TestExecute_ReportsErrorWithHint(t *testing.T) {
	setupTestEnv(t)

	resetFlags(rootCmd)
	sessionEnv = nil
	rootCmd.SetArgs([]string{"stop", "missing"})
	var errOut bytes.Buffer
	prevErr := logging.Stderr
	logging.Stderr = &errOut
	defer func() {
		rootCmd.SetArgs(nil)
		logging.Stderr = prevErr
	}()

	_, err := Execute()
	if err == nil {
		t.Fatal("expected error for unknown session")
	}
	if errors.GetExitCode(err) != errors.ExitSessionNotFound {
		t.Errorf("exit code = %d, want %d", errors.GetExitCode(err), errors.ExitSessionNotFound)
	}
	if !strings.Contains(errOut.String(), "missing") {
		t.Errorf("stderr = %q, want the session name", errOut.String())
	}
}

func TestLsCommand(t *testing.T) {
	env := setupTestEnv(t)

	stdout, _, err := executeCommand("ls")
	if err != nil {
		t.Fatalf("ls failed: %v", err)
	}
	if !strings.Contains(stdout, "No sessions found") {
		t.Errorf("stdout = %q, want empty message", stdout)
	}

	stdout, _, err = executeCommand("ls", "--json")
	if err != nil {
		t.Fatalf("ls --json failed: %v", err)
	}
	if strings.TrimSpace(stdout) != "[]" {
		t.Errorf("ls --json = %q, want []", stdout)
	}

	repo := env.CreateRepo("alpha")
	if _, _, err := executeCommand("alpha", "-d", "--project", repo); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	stdout, _, err = executeCommand("ls")
	if err != nil {
		t.Fatalf("ls failed: %v", err)
	}
	if !strings.Contains(stdout, "NAME") || !strings.Contains(stdout, "alpha") || !strings.Contains(stdout, "running") {
		t.Errorf("ls output = %q", stdout)
	}

	stdout, _, err = executeCommand("ls", "--json", "--log-format", "json")
	if err != nil {
		t.Fatalf("ls --json failed: %v", err)
	}
	if logFormat != "json" || !lsJSON {
		t.Errorf("logFormat = %q, lsJSON = %v; both flags should apply", logFormat, lsJSON)
	}
	var views []sandbox.SessionView
	if err := json.Unmarshal([]byte(stdout), &views); err != nil {
		t.Fatalf("ls --json is not valid JSON: %v\n%s", err, stdout)
	}
	if len(views) != 1 || views[0].Session.Name != "alpha" || views[0].Status != sandbox.StatusRunning {
		t.Errorf("views = %+v", views)
	}
}

func TestPathStopRm(t *testing.T) {
	env := setupTestEnv(t)
	repo := env.CreateRepo("alpha")
	if _, _, err := executeCommand("alpha", "-d", "--project", repo); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	stdout, _, err := executeCommand("path", "alpha")
	if err != nil {
		t.Fatalf("path failed: %v", err)
	}
	want := filepath.Join(env.Paths.WorkspacesDir, "alpha")
	if strings.TrimSpace(stdout) != want {
		t.Errorf("path = %q, want %q", strings.TrimSpace(stdout), want)
	}

	stdout, _, err = executeCommand("stop", "alpha")
	if err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	if !strings.Contains(stdout, "Stopped session alpha") {
		t.Errorf("stop output = %q", stdout)
	}

	stdout, _, err = executeCommand("stop", "alpha")
	if err != nil {
		t.Fatalf("second stop failed: %v", err)
	}
	if !strings.Contains(stdout, "not running") {
		t.Errorf("second stop output = %q", stdout)
	}

	stdout, _, err = executeCommand("rm", "alpha")
	if err != nil {
		t.Fatalf("rm failed: %v", err)
	}
	if !strings.Contains(stdout, "Removed session alpha") {
		t.Errorf("rm output = %q", stdout)
	}
	if env.SessionExists("alpha") {
		t.Error("record should be removed")
	}
	if _, err := os.Stat(want); !os.IsNotExist(err) {
		t.Error("workspace should be removed")
	}
	if env.Runtime.Count() != 0 {
		t.Error("container should be removed")
	}

	stdout, _, err = executeCommand("rm", "alpha")
	if err != nil {
		t.Fatalf("rm of removed session failed: %v", err)
	}
	if !strings.Contains(stdout, "does not exist") {
		t.Errorf("rm output = %q", stdout)
	}
}

func TestRm_MultipleWithFailure(t *testing.T) {
	env := setupTestEnv(t)
	repo := env.CreateRepo("alpha")
	if _, _, err := executeCommand("alpha", "-d", "--project", repo); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	_, stderr, err := executeCommand("rm", "alpha", "Bad Name")
	if err == nil {
		t.Fatal("expected error for invalid name")
	}
	if !strings.Contains(err.Error(), "1 of 2") {
		t.Errorf("error = %v, want summary", err)
	}
	if !strings.Contains(stderr, "Bad Name") {
		t.Errorf("stderr = %q, want the failing name reported", stderr)
	}
	if env.SessionExists("alpha") {
		t.Error("valid session should still be removed")
	}
}

func TestLogCommand(t *testing.T) {
	env := setupTestEnv(t)
	repo := env.CreateRepo("alpha")
	if _, _, err := executeCommand("alpha", "-d", "--project", repo); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	stdout, _, err := executeCommand("log", "alpha")
	if err != nil {
		t.Fatalf("log failed: %v", err)
	}
	if !strings.Contains(stdout, "create") || !strings.Contains(stdout, "alpha") {
		t.Errorf("log output = %q", stdout)
	}

	stdout, _, err = executeCommand("log", "alpha", "--json")
	if err != nil {
		t.Fatalf("log --json failed: %v", err)
	}
	first, _, _ := strings.Cut(stdout, "\n")
	var event map[string]any
	if err := json.Unmarshal([]byte(first), &event); err != nil {
		t.Fatalf("log --json line is not JSON: %v\n%s", err, first)
	}
	if event["session"] != "alpha" {
		t.Errorf("event = %v", event)
	}

	stdout, _, err = executeCommand("log", "beta")
	if err != nil {
		t.Fatalf("log of session without events failed: %v", err)
	}
	if !strings.Contains(stdout, "No events found") {
		t.Errorf("log output = %q", stdout)
	}
}

func TestPick_NonInteractive(t *testing.T) {
	env := setupTestEnv(t)
	repo := env.CreateRepo("alpha")
	if _, _, err := executeCommand("alpha", "-d", "--project", repo); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	stdout, _, err := executeCommand()
	if err != nil {
		t.Fatalf("realm without args failed: %v", err)
	}
	if !strings.Contains(stdout, "realm - Sessions") || !strings.Contains(stdout, "alpha") {
		t.Errorf("listing = %q", stdout)
	}
}

func TestPick_DispatchesResult(t *testing.T) {
	env := setupTestEnv(t)
	repo := env.CreateRepo("alpha")
	if _, _, err := executeCommand("alpha", "-d", "--project", repo); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	interactive = func() bool { return true }
	runPicker = func(entries []tui.Entry, opts tui.Options) (tui.Result, error) {
		if len(entries) != 1 || entries[0].Name != "alpha" {
			t.Errorf("entries = %+v", entries)
		}
		if opts.DefaultImage != env.Settings.DefaultImage {
			t.Errorf("DefaultImage = %q", opts.DefaultImage)
		}
		return tui.Result{Action: tui.ActionStop, Name: "alpha"}, nil
	}

	stdout, _, err := executeCommand("pick")
	if err != nil {
		t.Fatalf("pick failed: %v", err)
	}
	if !strings.Contains(stdout, "Stopped session alpha") {
		t.Errorf("pick output = %q", stdout)
	}
}

func TestRuntimeCommand(t *testing.T) {
	setupTestEnv(t)

	stdout, _, err := executeCommand("runtime")
	if err != nil {
		t.Fatalf("runtime failed: %v", err)
	}
	if !strings.Contains(stdout, "Active runtime: mock (available)") {
		t.Errorf("runtime output = %q", stdout)
	}
	if !strings.Contains(stdout, "SSH forwarding:") {
		t.Errorf("runtime output = %q", stdout)
	}
}
