// Package main is the entrypoint for the gantry CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/shlex"
	"github.com/spf13/cobra"

	// Import transports to register them
	_ "github.com/eugenetaranov/gantry/internal/transport/docker"
	_ "github.com/eugenetaranov/gantry/internal/transport/local"
	_ "github.com/eugenetaranov/gantry/internal/transport/ssh"

	"github.com/eugenetaranov/gantry/internal/config"
	"github.com/eugenetaranov/gantry/internal/logging"
	"github.com/eugenetaranov/gantry/internal/output"
	"github.com/eugenetaranov/gantry/internal/platform"
	"github.com/eugenetaranov/gantry/internal/target"
	"github.com/eugenetaranov/gantry/internal/transport"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Global flags
var (
	targetsFile string
	targetName  string
	debug       bool
	noColor     bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "gantry",
	Short: "Gantry - Remote platform control",
	Long: `Gantry drives local and remote machines through one uniform surface:
shell execution, file transfer, directory and permission management,
and process launch/kill.

Supports local execution, SSH, and Docker transports.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&targetsFile, "targets", "i", "", "Target inventory file")
	rootCmd.PersistentFlags().StringVarP(&targetName, "target", "t", "", "Target to operate on")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Enable debug output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(putCmd)
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(mkdirCmd)
	rootCmd.AddCommand(chmodCmd)
	rootCmd.AddCommand(permsCmd)
	rootCmd.AddCommand(launchCmd)
	rootCmd.AddCommand(killCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(targetsCmd)
}

// session bundles everything an operation needs: a connected platform, the
// output renderer and a signal-aware context.
type session struct {
	platform *platform.Platform
	out      *output.Output
	cfg      *config.Config
}

// newSession loads config, resolves the target and connects to it. The
// returned cleanup disconnects and must always be called.
func newSession(ctx context.Context) (*session, func(), error) {
	cfg, err := config.Load("gantry.yaml")
	if err != nil {
		return nil, nil, err
	}

	if err := logging.Configure(cfg.Logging); err != nil {
		return nil, nil, err
	}
	if debug {
		logging.SetLevel("debug")
	}

	out := output.New(os.Stdout)
	out.SetColor(!noColor)
	out.SetDebug(debug)

	name := targetName
	if name == "" {
		name = cfg.Targets.Default
	}

	// The host target needs no inventory entry or connection step.
	if name == "host" {
		return &session{platform: platform.Host(), out: out, cfg: cfg}, func() {}, nil
	}

	file := targetsFile
	if file == "" {
		file = cfg.Targets.File
	}

	inv, err := target.ParseFile(file)
	if err != nil {
		return nil, nil, err
	}

	tgt, err := inv.Get(name)
	if err != nil {
		return nil, nil, err
	}

	tr, err := tgt.Transport()
	if err != nil {
		return nil, nil, err
	}

	p := platform.New(tgt.Name, tr)
	if err := p.ConnectRemote(ctx, tgt.ConnectOptions()); err != nil {
		return nil, nil, fmt.Errorf("failed to connect to target %s: %w", tgt.Name, err)
	}

	return &session{platform: p, out: out, cfg: cfg}, p.DisconnectRemote, nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nInterrupted, cleaning up...")
		cancel()
	}()

	return ctx, cancel
}

// runCmd executes a shell command on the target
var runCmd = &cobra.Command{
	Use:   "run <command>",
	Short: "Run a shell command on the target",
	Long: `Execute a shell command on the target and print its output.

The process exit status becomes gantry's exit status.

Examples:
  gantry run 'uname -a'
  gantry -t web1 run 'systemctl status nginx' --timeout 30
  gantry -t web1 run 'make test' --dir /srv/app --shell /bin/bash`,
	Args: cobra.ExactArgs(1),
	RunE: runShellCommand,
}

func init() {
	runCmd.Flags().String("shell", "", "Interpreter to run the command with")
	runCmd.Flags().String("dir", "", "Working directory for the command")
	runCmd.Flags().Uint32("timeout", 0, "Timeout in seconds (0 means none)")
}

func runShellCommand(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	sess, cleanup, err := newSession(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	shell, _ := cmd.Flags().GetString("shell")
	dir, _ := cmd.Flags().GetString("dir")
	timeout, _ := cmd.Flags().GetUint32("timeout")

	spec := platform.NewShellCommandWithShell(shell, args[0])
	spec.SetWorkingDirectory(dir)
	if timeout > 0 {
		spec.SetTimeoutSeconds(timeout)
	}

	start := time.Now()
	if err := sess.platform.Run(ctx, spec); err != nil {
		return err
	}
	sess.out.CommandResult(spec, time.Since(start))

	if spec.Status() != 0 {
		os.Exit(spec.Status())
	}
	return nil
}

// getCmd copies a file from the target
var getCmd = &cobra.Command{
	Use:   "get <remote-src> <local-dst>",
	Short: "Copy a file from the target",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		sess, cleanup, err := newSession(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		err = sess.platform.Get(ctx, args[0], args[1])
		sess.out.Transfer("get", args[0], args[1], err)
		return err
	},
}

// putCmd copies a file to the target
var putCmd = &cobra.Command{
	Use:   "put <local-src> <remote-dst>",
	Short: "Copy a file to the target",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		sess, cleanup, err := newSession(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		err = sess.platform.Put(ctx, args[0], args[1])
		sess.out.Transfer("put", args[0], args[1], err)
		return err
	},
}

// installCmd places a file or directory tree onto the target
var installCmd = &cobra.Command{
	Use:   "install <local-src> <remote-dst>",
	Short: "Install a file or directory tree onto the target",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		sess, cleanup, err := newSession(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		err = sess.platform.Install(ctx, args[0], args[1])
		sess.out.Transfer("install", args[0], args[1], err)
		return err
	},
}

// mkdirCmd creates a directory on the target
var mkdirCmd = &cobra.Command{
	Use:   "mkdir <remote-path>",
	Short: "Create a directory on the target",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		sess, cleanup, err := newSession(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		mode, _ := cmd.Flags().GetString("mode")
		permissions, err := parseMode(mode)
		if err != nil {
			return err
		}

		return sess.platform.MakeDirectory(ctx, args[0], permissions)
	},
}

func init() {
	mkdirCmd.Flags().String("mode", "755", "Permission bits (octal)")
}

// chmodCmd changes permission bits on the target
var chmodCmd = &cobra.Command{
	Use:   "chmod <mode> <remote-path>",
	Short: "Change permission bits of a path on the target",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		sess, cleanup, err := newSession(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		permissions, err := parseMode(args[0])
		if err != nil {
			return err
		}

		return sess.platform.SetFilePermissions(ctx, args[1], permissions)
	},
}

// permsCmd shows permission bits of a path on the target
var permsCmd = &cobra.Command{
	Use:   "perms <remote-path>",
	Short: "Show permission bits of a path on the target",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		sess, cleanup, err := newSession(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		bits := sess.platform.GetFilePermissions(ctx, args[0])
		sess.out.Permissions(args[0], bits)
		return nil
	},
}

// launchCmd starts a detached process on the target
var launchCmd = &cobra.Command{
	Use:   "launch <command>",
	Short: "Start a detached process on the target",
	Long: `Start a process on the target without waiting for it, printing its PID.

The command is split shell-style; the first word is the executable.

Examples:
  gantry -t web1 launch '/usr/bin/myservice --port 8080'`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		sess, cleanup, err := newSession(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		words, err := shlex.Split(args[0])
		if err != nil {
			return fmt.Errorf("invalid command line: %w", err)
		}
		if len(words) == 0 {
			return fmt.Errorf("empty command line")
		}

		dir, _ := cmd.Flags().GetString("dir")
		env, _ := cmd.Flags().GetStringArray("env")

		info := &platform.LaunchInfo{
			Path:       words[0],
			Args:       words[1:],
			Env:        env,
			WorkingDir: dir,
		}

		if err := sess.platform.Launch(ctx, info); err != nil {
			return err
		}
		sess.out.Launched(info.Path, info.PID())
		return nil
	},
}

func init() {
	launchCmd.Flags().String("dir", "", "Working directory for the process")
	launchCmd.Flags().StringArray("env", nil, "Environment entries (KEY=value)")
}

// killCmd terminates a process on the target
var killCmd = &cobra.Command{
	Use:   "kill <pid>",
	Short: "Terminate a process on the target",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		sess, cleanup, err := newSession(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		pid, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid pid %q", args[0])
		}

		return sess.platform.Kill(ctx, pid)
	},
}

// infoCmd describes the target system
var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Describe the target system",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		sess, cleanup, err := newSession(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		p := sess.platform

		osVersion := ""
		if major := p.GetOSMajorVersion(ctx); major != platform.UnknownVersion {
			osVersion = fmt.Sprintf("%d", major)
			if minor := p.GetOSMinorVersion(ctx); minor != platform.UnknownVersion {
				osVersion += fmt.Sprintf(".%d", minor)
				if update := p.GetOSUpdateVersion(ctx); update != platform.UnknownVersion {
					osVersion += fmt.Sprintf(".%d", update)
				}
			}
		}

		sess.out.Target(p.Name(), p.String())
		sess.out.InfoTable([][2]string{
			{"triple", p.GetTriple(ctx)},
			{"hostname", p.GetHostname(ctx)},
			{"os version", osVersion},
			{"os build", p.GetOSBuild(ctx)},
			{"kernel", p.GetOSDescription(ctx)},
			{"workdir", p.GetWorkingDirectory()},
		})
		return nil
	},
}

// targetsCmd lists inventory targets and transport kinds
var targetsCmd = &cobra.Command{
	Use:   "targets",
	Short: "List inventory targets",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load("gantry.yaml")
		if err != nil {
			return err
		}

		file := targetsFile
		if file == "" {
			file = cfg.Targets.File
		}

		out := output.New(os.Stdout)
		out.SetColor(!noColor)

		inv, err := target.ParseFile(file)
		if err != nil {
			out.Warn("no inventory: %v", err)
		} else {
			out.Section("Targets")
			for _, name := range inv.Names() {
				tgt := inv.Targets[name]
				out.Info("%s", tgt.String())
			}
		}

		out.Section("Transports")
		for _, kind := range transport.Kinds() {
			out.Info("%s", kind)
		}
		return nil
	},
}

func parseMode(s string) (uint32, error) {
	bits, err := strconv.ParseUint(s, 8, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid mode %q (expected octal)", s)
	}
	return uint32(bits), nil
}
