package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"github.com/oklog/run"
	"github.com/sirupsen/logrus"

	"github.com/slok/sprites/cmd/sprites/commands"
	"github.com/slok/sprites/internal/log"
	loglogrus "github.com/slok/sprites/internal/log/logrus"
)

const (
	// Version is the application version (set via ldflags).
	Version = "dev"
)

// Run runs the main application.
func Run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) (err error) {
	app := kingpin.New("sprites", "Sprites client.")
	app.DefaultEnvars()
	rootCmd := commands.NewRootCommand(app)

	// Setup commands (registers flags).
	listCmd := commands.NewListCommand(rootCmd, app)
	getCmd := commands.NewGetCommand(rootCmd, app)
	createCmd := commands.NewCreateCommand(rootCmd, app)
	waitCmd := commands.NewWaitCommand(rootCmd, app)
	updateCmd := commands.NewUpdateCommand(rootCmd, app)
	removeCmd := commands.NewRemoveCommand(rootCmd, app)
	execCmd := commands.NewExecCommand(rootCmd, app)
	consoleCmd := commands.NewConsoleCommand(rootCmd, app)
	attachCmd := commands.NewAttachCommand(rootCmd, app)
	sessionsCmd := commands.NewSessionsCommand(rootCmd, app)
	killCmd := commands.NewKillCommand(rootCmd, app)
	doctorCmd := commands.NewDoctorCommand(rootCmd, app)

	// Checkpoint subcommands share a parent command.
	checkpointCmd := app.Command("checkpoint", "Manage checkpoints.")
	checkpointCreateCmd := commands.NewCheckpointCreateCommand(rootCmd, checkpointCmd)
	checkpointListCmd := commands.NewCheckpointListCommand(rootCmd, checkpointCmd)
	checkpointGetCmd := commands.NewCheckpointGetCommand(rootCmd, checkpointCmd)
	checkpointRestoreCmd := commands.NewCheckpointRestoreCommand(rootCmd, checkpointCmd)

	// Policy subcommands share a parent command.
	policyCmd := app.Command("policy", "Manage network policies.")
	policyGetCmd := commands.NewPolicyGetCommand(rootCmd, policyCmd)
	policySetCmd := commands.NewPolicySetCommand(rootCmd, policyCmd)
	policyCheckCmd := commands.NewPolicyCheckCommand(rootCmd, policyCmd)

	cmds := map[string]commands.Command{
		listCmd.Name():              listCmd,
		getCmd.Name():               getCmd,
		createCmd.Name():            createCmd,
		waitCmd.Name():              waitCmd,
		updateCmd.Name():            updateCmd,
		removeCmd.Name():            removeCmd,
		execCmd.Name():              execCmd,
		consoleCmd.Name():           consoleCmd,
		attachCmd.Name():            attachCmd,
		sessionsCmd.Name():          sessionsCmd,
		killCmd.Name():              killCmd,
		doctorCmd.Name():            doctorCmd,
		checkpointCreateCmd.Name():  checkpointCreateCmd,
		checkpointListCmd.Name():    checkpointListCmd,
		checkpointGetCmd.Name():     checkpointGetCmd,
		checkpointRestoreCmd.Name(): checkpointRestoreCmd,
		policyGetCmd.Name():         policyGetCmd,
		policySetCmd.Name():         policySetCmd,
		policyCheckCmd.Name():       policyCheckCmd,
	}

	// Parse command.
	cmdName, err := app.Parse(args[1:])
	if err != nil {
		return fmt.Errorf("invalid command configuration: %w", err)
	}

	// Set standard input/output.
	rootCmd.Stdin = stdin
	rootCmd.Stdout = stdout
	rootCmd.Stderr = stderr

	// Auto-suppress logging for commands that print structured output or own
	// the terminal, log lines would mix with their output. --debug still logs.
	quietCommands := map[string]bool{
		"list":            true,
		"get":             true,
		"sessions":        true,
		"doctor":          true,
		"exec":            true,
		"console":         true,
		"attach":          true,
		"checkpoint list": true,
		"checkpoint get":  true,
		"policy get":      true,
		"policy check":    true,
	}
	if quietCommands[cmdName] && !rootCmd.Debug {
		rootCmd.NoLog = true
	}

	// Set logger.
	rootCmd.Logger = getLogger(*rootCmd)

	var g run.Group

	// OS signals.
	{
		signalCtx, signalCancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
		defer signalCancel()

		g.Add(
			func() error {
				<-signalCtx.Done()
				rootCmd.Logger.Debugf("Termination signal received")
				return nil
			},
			func(_ error) {
				signalCancel()
			},
		)
	}

	// Execute command.
	{
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		g.Add(
			func() error {
				err := cmds[cmdName].Run(ctx)
				if err != nil {
					return fmt.Errorf("%q command failed: %w", cmdName, err)
				}
				return nil
			},
			func(_ error) {
				cancel()
			},
		)
	}

	return g.Run()
}

// getLogger returns the application logger.
func getLogger(config commands.RootCommand) log.Logger {
	if config.NoLog {
		return log.Noop
	}

	// If logger not disabled use logrus logger.
	logrusLog := logrus.New()
	logrusLog.Out = config.Stderr // By default logger goes to stderr (so it can split stdout prints).
	logrusLogEntry := logrus.NewEntry(logrusLog)

	if config.Debug {
		logrusLogEntry.Logger.SetLevel(logrus.DebugLevel)
	}

	// Log format.
	switch config.LoggerType {
	case commands.LoggerTypeDefault:
		logrusLogEntry.Logger.SetFormatter(&logrus.TextFormatter{
			ForceColors:   !config.NoColor,
			DisableColors: config.NoColor,
		})
	case commands.LoggerTypeJSON:
		logrusLogEntry.Logger.SetFormatter(&logrus.JSONFormatter{})
	}

	logger := loglogrus.NewLogrus(logrusLogEntry).WithValues(log.Kv{
		"version": Version,
	})

	logger.Debugf("Debug level is enabled") // Will log only when debug enabled.

	return logger
}

func main() {
	ctx := context.Background()
	err := Run(ctx, os.Args, os.Stdin, os.Stdout, os.Stderr)
	if err != nil {
		// Remote process exit codes are propagated as is.
		var exitErr *commands.ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}

		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
