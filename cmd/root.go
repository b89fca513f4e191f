package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/firefly-engineering/realm/internal/config"
	"github.com/firefly-engineering/realm/internal/errors"
	"github.com/firefly-engineering/realm/internal/logging"
	"github.com/firefly-engineering/realm/internal/sandbox"
)

var (
	verbose    bool
	logFormat  string

	sessionDetach      bool
	sessionImage       string
	sessionMount       string
	sessionEnv         []string
	sessionProject     string
	sessionRuntimeArgs string
	sessionNoSSH       bool
	sessionRecreate    bool

	// exitCode is the status of the attached or executed process.
	exitCode int
)

var rootCmd = &cobra.Command{
	Use:   "realm [name] [flags] [-- command...]",
	Short: "Isolated container sessions over git workspaces",
	Long: `realm runs each named session in its own container, on its own clone of
the current repository. Your checkout is never mounted.

  realm                      browse sessions
  realm <name>               create the session, or resume it if it exists
  realm <name> -- make test  run a command (in a new container, or exec in a running one)
  realm <name> -d            create or start without attaching

The session's workspace survives container removal; use 'realm rm' to
delete both.`,
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		switch logFormat {
		case "text", "json":
		default:
			return errors.ValidationError(fmt.Sprintf("invalid --log-format %q (expected text or json)", logFormat))
		}
		logging.Setup(verbose, logFormat == "json", os.Stderr)
		return nil
	},
	RunE: runRoot,
}

// Execute runs the CLI and returns the exit code of the attached process.
func Execute() (int, error) {
	exitCode = 0
	if err := rootCmd.Execute(); err != nil {
		reportError(err)
		return 0, err
	}
	return exitCode, nil
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format: text or json")
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	flags := rootCmd.Flags()
	flags.BoolVarP(&sessionDetach, "detach", "d", false, "Create or start the session without attaching")
	flags.StringVar(&sessionImage, "image", "", "Container image (new sessions only)")
	flags.StringVar(&sessionMount, "mount", "", "Mount path of the workspace in the container (new sessions only)")
	flags.StringArrayVarP(&sessionEnv, "env", "e", nil, "Set an environment variable KEY=VALUE, or KEY to pass the host value (new sessions only, repeatable)")
	flags.StringVar(&sessionProject, "project", "", "Project directory to clone (new sessions only, default: current directory)")
	flags.StringVar(&sessionRuntimeArgs, "runtime-args", "", "Extra arguments passed to the container runtime")
	flags.BoolVar(&sessionNoSSH, "no-ssh", false, "Do not forward the SSH agent")
	flags.BoolVar(&sessionRecreate, "recreate", false, "Recreate the container if it no longer exists")
	flags.SetNormalizeFunc(func(f *pflag.FlagSet, name string) pflag.NormalizedName {
		if name == "docker-args" {
			name = "runtime-args"
		}
		return pflag.NormalizedName(name)
	})
}

// Helper aliases for user-facing output (delegates to logging package)
var (
	logInfo    = logging.UserInfo
	logSuccess = logging.UserSuccess
	logWarning = logging.UserWarning
	logError   = logging.UserError
)

func reportError(err error) {
	logError("%s", err)
	logging.UserHint(errors.GetHint(err))
}

func runRoot(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		if !onlyGlobalFlags(cmd) {
			return errors.ValidationError("session flags need a session name")
		}
		return runPick(cmd, args)
	}

	name, command, err := splitSessionArgs(cmd, args)
	if err != nil {
		return err
	}
	opts, err := sessionOptions(cmd)
	if err != nil {
		return err
	}
	opts.Command = command

	a, err := loadApp()
	if err != nil {
		return err
	}
	return createOrResume(cmd, a.Orchestrator(), name, opts)
}

// splitSessionArgs separates the session name from a command given after --.
func splitSessionArgs(cmd *cobra.Command, args []string) (string, []string, error) {
	dash := cmd.ArgsLenAtDash()
	if dash == -1 {
		if len(args) > 1 {
			return "", nil, errors.ValidationError(fmt.Sprintf("unexpected arguments %q", strings.Join(args[1:], " "))).
				WithHint(fmt.Sprintf("put the command after --, e.g. 'realm %s -- %s'", args[0], strings.Join(args[1:], " ")))
		}
		return args[0], nil, nil
	}
	if dash != 1 {
		return "", nil, errors.ValidationError("exactly one session name must come before --")
	}
	return args[0], args[1:], nil
}

// sessionOptions collects the create-or-resume flags.
func sessionOptions(cmd *cobra.Command) (sandbox.Options, error) {
	opts := sandbox.Options{
		Image:      sessionImage,
		MountPath:  sessionMount,
		ProjectDir: sessionProject,
		Env:        sessionEnv,
		NoSSH:      sessionNoSSH,
		Detach:     sessionDetach,
		Recreate:   sessionRecreate,
	}

	if opts.MountPath != "" && !strings.HasPrefix(opts.MountPath, "/") {
		return opts, errors.ValidationError(fmt.Sprintf("mount path must be absolute: %s", opts.MountPath))
	}
	for _, env := range opts.Env {
		if k, _, _ := strings.Cut(env, "="); k == "" {
			return opts, errors.ValidationError(fmt.Sprintf("invalid environment variable %q (expected KEY=VALUE or KEY)", env))
		}
	}

	if cmd.Flags().Changed("runtime-args") {
		args, err := config.SplitArgs(sessionRuntimeArgs)
		if err != nil {
			return opts, errors.ValidationError(fmt.Sprintf("invalid --runtime-args: %v", err))
		}
		opts.RuntimeArgs = args
		opts.RuntimeArgsSet = true
	}
	return opts, nil
}

// onlyGlobalFlags reports whether every flag set on cmd is a persistent one.
// The set built by LocalNonPersistentFlags does not track changes itself, so
// each flag's Changed field is checked.
func onlyGlobalFlags(cmd *cobra.Command) bool {
	only := true
	cmd.LocalNonPersistentFlags().VisitAll(func(f *pflag.Flag) {
		if f.Changed {
			only = false
		}
	})
	return only
}
