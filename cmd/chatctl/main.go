package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ls-github123/openai-chat-deploy/internal/compose"
	"github.com/ls-github123/openai-chat-deploy/internal/config"
	"github.com/ls-github123/openai-chat-deploy/internal/constants"
	"github.com/ls-github123/openai-chat-deploy/internal/journal"
	"github.com/ls-github123/openai-chat-deploy/internal/logging"
	"github.com/ls-github123/openai-chat-deploy/internal/probe"
	"github.com/ls-github123/openai-chat-deploy/internal/provision"
	"github.com/ls-github123/openai-chat-deploy/internal/state"
	"github.com/ls-github123/openai-chat-deploy/internal/terminal"
	"github.com/ls-github123/openai-chat-deploy/internal/vault"
)

var version = "0.1.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := &cobra.Command{
		Use:   "chatctl",
		Short: "Provision the openai-chat deployment stacks",
		Long: "chatctl fetches deployment secrets from Azure Key Vault, renders them\n" +
			"into per-stack env files, and launches the identity and database stacks\n" +
			"through docker compose.",
	}

	rootCmd.PersistentFlags().String("config", constants.DefaultConfigFile, "Path to the chatctl config file")

	rootCmd.AddCommand(
		newUpCmd(),
		newDownCmd(),
		newRenderCmd(),
		newStatusCmd(),
		newHistoryCmd(),
		newVersionCmd(),
	)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the config named by the persistent --config flag.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return config.Config{}, fmt.Errorf("invalid config flag: %w", err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// openJournal opens the run journal, falling back to no journaling with a
// warning when the database cannot be opened.
func openJournal(cfg config.Config, log zerolog.Logger) *journal.Journal {
	path := cfg.Journal.Path
	if path == "" {
		var err error
		path, err = journal.DefaultPath()
		if err != nil {
			log.Warn().Err(err).Msg("run journal disabled")
			return nil
		}
	}

	j, err := journal.Open(path)
	if err != nil {
		log.Warn().Err(err).Msg("run journal disabled")
		return nil
	}
	return j
}

// newProvisioner wires the full provisioning dependency set. withVault
// controls whether a vault client is built; teardown does not need one.
func newProvisioner(cfg config.Config, log zerolog.Logger, withVault bool) (*provision.Provisioner, *journal.Journal, error) {
	var vaultClient vault.Client
	if withVault {
		var err error
		vaultClient, err = vault.New(cfg.Vault.URL, log)
		if err != nil {
			return nil, nil, err
		}
	}

	runner, err := compose.NewCLIRunner(log)
	if err != nil {
		return nil, nil, err
	}

	j := openJournal(cfg, log)
	var recorder provision.Recorder
	if j != nil {
		recorder = j
	}

	prober := probe.New(time.Duration(cfg.Timeouts.ProbeIntervalMillis)*time.Millisecond, log)

	p := provision.New(provision.Deps{
		Vault:          vaultClient,
		Compose:        runner,
		Waiter:         prober,
		Recorder:       recorder,
		ComposeTimeout: time.Duration(cfg.Timeouts.ComposeSeconds) * time.Second,
		ProbeTimeout:   time.Duration(cfg.Timeouts.ProbeSeconds) * time.Second,
	}, log)

	return p, j, nil
}

func newUpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "up <stack>",
		Short: "Fetch secrets, render the env file, and launch a stack",
		Long: "Fetches every secret the stack requires from the vault, writes the\n" +
			"stack's env file, starts its services with docker compose, and waits\n" +
			"until they accept the rendered credentials. A missing or empty secret\n" +
			"aborts before compose is ever invoked.",
		Args: cobra.ExactArgs(1),
		RunE: runUp,
	}
}

func runUp(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log := logging.New(cfg.Logging.Level, cfg.Logging.Pretty)

	stackName := args[0]
	stack, err := cfg.StackNamed(stackName)
	if err != nil {
		return err
	}

	p, j, err := newProvisioner(cfg, log, true)
	if err != nil {
		return err
	}
	if j != nil {
		defer j.Close()
	}

	if err := p.Up(cmd.Context(), stackName, stack); err != nil {
		return err
	}

	fmt.Printf("STACK=%s\n", stackName)
	fmt.Printf("STATUS=up\n")
	fmt.Printf("ENV_FILE=%s\n", stack.EnvFile)
	return nil
}

func newDownCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "down <stack>",
		Short: "Stop and remove a stack's services",
		Args:  cobra.ExactArgs(1),
		RunE:  runDown,
	}

	cmd.Flags().Bool("volumes", false, "Also remove the stack's named volumes (destroys data)")
	cmd.Flags().Bool("yes", false, "Skip the confirmation prompt for --volumes")

	return cmd
}

func runDown(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log := logging.New(cfg.Logging.Level, cfg.Logging.Pretty)

	removeVolumes, err := cmd.Flags().GetBool("volumes")
	if err != nil {
		return fmt.Errorf("invalid volumes flag: %w", err)
	}
	assumeYes, err := cmd.Flags().GetBool("yes")
	if err != nil {
		return fmt.Errorf("invalid yes flag: %w", err)
	}

	stackName := args[0]
	stack, err := cfg.StackNamed(stackName)
	if err != nil {
		return err
	}

	if removeVolumes && !assumeYes {
		ok, err := terminal.Confirm(
			fmt.Sprintf("Remove the %s stack INCLUDING its data volumes?", stackName), false)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(os.Stderr, "Aborted.")
			return nil
		}
	}

	p, j, err := newProvisioner(cfg, log, false)
	if err != nil {
		return err
	}
	if j != nil {
		defer j.Close()
	}

	if err := p.Down(cmd.Context(), stackName, stack, removeVolumes); err != nil {
		return err
	}

	fmt.Printf("STACK=%s\n", stackName)
	fmt.Printf("STATUS=down\n")
	return nil
}

func newRenderCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "render <stack>",
		Short: "Fetch secrets and write the env file without launching anything",
		Args:  cobra.ExactArgs(1),
		RunE:  runRender,
	}
}

func runRender(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log := logging.New(cfg.Logging.Level, cfg.Logging.Pretty)

	stackName := args[0]
	stack, err := cfg.StackNamed(stackName)
	if err != nil {
		return err
	}

	vaultClient, err := vault.New(cfg.Vault.URL, log)
	if err != nil {
		return err
	}

	j := openJournal(cfg, log)
	if j != nil {
		defer j.Close()
	}
	var recorder provision.Recorder
	if j != nil {
		recorder = j
	}

	p := provision.New(provision.Deps{Vault: vaultClient, Recorder: recorder}, log)
	if err := p.Render(cmd.Context(), stackName, stack); err != nil {
		return err
	}

	fmt.Printf("STACK=%s\n", stackName)
	fmt.Printf("STATUS=rendered\n")
	fmt.Printf("ENV_FILE=%s\n", stack.EnvFile)
	return nil
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the state of both stacks",
		Long: "Reports manifest and env file presence, env file permissions, and\n" +
			"compose service state for each stack. Output is KEY=VALUE per line\n" +
			"for easy parsing.",
		RunE: runStatus,
	}
}

func runStatus(cmd *cobra.Command, args []string) error {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return fmt.Errorf("invalid config flag: %w", err)
	}
	// Status must work on an unconfigured host, so skip Validate.
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	log := logging.New(cfg.Logging.Level, cfg.Logging.Pretty)

	var runner compose.Runner
	if cli, err := compose.NewCLIRunner(log); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	} else {
		runner = cli
	}

	if cfg.Vault.URL != "" {
		fmt.Printf("VAULT_URL=%s\n", cfg.Vault.URL)
		printVaultReachability(cmd.Context(), cfg, log)
	} else {
		fmt.Printf("VAULT_URL=unset\n")
	}

	detector := state.NewDetector(runner)
	for _, name := range []string{constants.StackIdentity, constants.StackDatabases} {
		stack, err := cfg.StackNamed(name)
		if err != nil {
			continue
		}
		printStackState(detector.Detect(cmd.Context(), name, stack))
	}

	return nil
}

// printVaultReachability asks the vault for one configured secret and
// reports whether it answered at all.
func printVaultReachability(ctx context.Context, cfg config.Config, log zerolog.Logger) {
	name := firstSecretName(cfg)
	if name == "" {
		return
	}

	client, err := vault.New(cfg.Vault.URL, log)
	if err != nil {
		fmt.Printf("VAULT=unreachable\n")
		fmt.Fprintf(os.Stderr, "Warning: vault check failed: %v\n", err)
		return
	}

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := state.CheckVault(checkCtx, client, name); err != nil {
		fmt.Printf("VAULT=unreachable\n")
		fmt.Fprintf(os.Stderr, "Warning: vault check failed: %v\n", err)
		return
	}
	fmt.Printf("VAULT=reachable\n")
}

// firstSecretName returns one secret name from the configured stacks,
// preferring the databases stack for a stable choice.
func firstSecretName(cfg config.Config) string {
	for _, name := range []string{constants.StackDatabases, constants.StackIdentity} {
		stack, err := cfg.StackNamed(name)
		if err != nil {
			continue
		}
		for _, entry := range stack.SecretEntries() {
			return entry.SecretName()
		}
	}
	return ""
}

func printStackState(s state.StackState) {
	fmt.Printf("STACK=%s\n", s.Name)
	fmt.Printf("MANIFEST=%s\n", presence(s.ManifestExists))
	fmt.Printf("ENV_FILE=%s\n", presence(s.EnvFileExists))

	if s.EnvFileExists {
		if s.EnvFileSecure {
			fmt.Printf("ENV_FILE_MODE=secure\n")
		} else {
			fmt.Printf("ENV_FILE_MODE=insecure\n")
			fmt.Fprintf(os.Stderr, "Warning: %s env file is readable by other users\n", s.Name)
		}
	}
	fmt.Printf("MISSING_KEYS=%s\n", strings.Join(s.MissingKeys, ","))

	if s.ServicesErr != nil {
		fmt.Printf("SERVICES=error\n")
		fmt.Fprintf(os.Stderr, "Warning: %s service check failed: %v\n", s.Name, s.ServicesErr)
		return
	}

	parts := make([]string, 0, len(s.Services))
	for _, svc := range s.Services {
		part := svc.Name + ":" + svc.State
		if svc.Health != "" {
			part += "/" + svc.Health
		}
		parts = append(parts, part)
	}
	fmt.Printf("SERVICES=%s\n", strings.Join(parts, ","))
	if len(s.DeclaredServices) > 0 {
		fmt.Printf("DECLARED_SERVICES=%s\n", strings.Join(s.DeclaredServices, ","))
		fmt.Printf("MISSING_SERVICES=%s\n", strings.Join(s.MissingServices, ","))
	}
	fmt.Printf("RUNNING=%t\n", s.Running())
}

func presence(ok bool) string {
	if ok {
		return "present"
	}
	return "absent"
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent provisioning runs",
		RunE:  runHistory,
	}

	cmd.Flags().Int("limit", 20, "Maximum number of runs to show")

	return cmd
}

func runHistory(cmd *cobra.Command, args []string) error {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return fmt.Errorf("invalid config flag: %w", err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return fmt.Errorf("invalid limit flag: %w", err)
	}

	log := logging.New(cfg.Logging.Level, cfg.Logging.Pretty)
	j := openJournal(cfg, log)
	if j == nil {
		return fmt.Errorf("run journal is unavailable")
	}
	defer j.Close()

	runs, err := j.Recent(cmd.Context(), limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(os.Stderr, "No recorded runs.")
		return nil
	}

	for _, run := range runs {
		line := fmt.Sprintf("%s  %-9s %-7s %-9s %s",
			run.StartedAt.Format(time.RFC3339), run.Stack, run.Command, run.Outcome, run.ID)
		if run.Error != "" {
			line += "  " + run.Error
		}
		fmt.Println(line)
	}
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("chatctl version %s\n", version)
		},
	}
}
