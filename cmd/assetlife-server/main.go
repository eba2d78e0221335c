package main

import (
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/assetlife/server/internal/config"
	"github.com/assetlife/server/internal/logging"
)

var longHelp = strings.TrimSpace(`
Owns asset status transitions for the asset-management dashboard.

Every move between lifecycle stages goes through one validated, guarded
operation that updates the asset and appends to its history atomically.
Settings come from defaults, an optional TOML file (--config or
ASSETLIFE_CONFIG), ASSETLIFE_* environment variables and flags, with
explicitly set flags winning.
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// app carries the resolved configuration from PersistentPreRunE to the
// subcommands.
type app struct {
	cfg     config.Config
	cfgPath string
	log     zerolog.Logger
}

func newRootCmd() *cobra.Command {
	return buildRoot(&app{cfg: config.Default()})
}

func buildRoot(a *app) *cobra.Command {
	serve := newServeCmd(a)

	root := &cobra.Command{
		Use:           "assetlife-server",
		Short:         "Asset lifecycle engine",
		Long:          longHelp,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.resolve(cmd)
		},
		RunE: serve.RunE,
	}

	bindFlags(root.PersistentFlags(), &a.cfg, &a.cfgPath)

	root.AddCommand(serve, newMigrateCmd(a), newRulesCmd(a))
	return root
}

func bindFlags(fs *pflag.FlagSet, cfg *config.Config, cfgPath *string) {
	fs.StringVar(cfgPath, "config", "", "path to a TOML config file")
	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "HTTP listen address")
	fs.StringVar(&cfg.GRPCAddr, "grpc-addr", cfg.GRPCAddr, "gRPC health listen address (empty disables)")
	fs.StringVar(&cfg.Env, "env", cfg.Env, "dev or prod")
	fs.StringVar(&cfg.DBDriver, "db-driver", cfg.DBDriver, "sqlite, postgres or memory")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "SQLite database file")
	fs.StringVar(&cfg.DatabaseURL, "database-url", cfg.DatabaseURL, "Postgres connection URL")
	fs.IntVar(&cfg.WriteWorkers, "write-workers", cfg.WriteWorkers, "Postgres write workers")
	fs.StringVar(&cfg.RulesFile, "rules-file", cfg.RulesFile, "transition rules YAML (empty uses the built-in table)")
	fs.BoolVar(&cfg.WatchRules, "watch-rules", cfg.WatchRules, "reload the rules file when it changes")
	fs.StringVar(&cfg.ActorHeader, "actor-header", cfg.ActorHeader, "request header carrying the authenticated actor id")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "console or json")
	fs.BoolVar(&cfg.SeedDev, "seed-dev", cfg.SeedDev, "insert demo assets on start (dev only)")
	fs.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", cfg.ShutdownTimeout, "grace period for in-flight requests")
}

// resolve layers file and environment under the flags that were set
// explicitly, validates, and builds the logger.
func (a *app) resolve(cmd *cobra.Command) error {
	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

	path := a.cfgPath
	if path == "" {
		path = strings.TrimSpace(os.Getenv("ASSETLIFE_CONFIG"))
	}
	if path != "" {
		if !config.FileExists(path) {
			return fmt.Errorf("config file %s not found", path)
		}
		fc, err := config.LoadFileConfig(path)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := config.ApplyFileConfig(&a.cfg, fc, changed); err != nil {
			return err
		}
	}

	if err := config.ApplyEnvConfig(&a.cfg, changed); err != nil {
		return err
	}
	if err := a.cfg.Validate(); err != nil {
		return err
	}

	log, err := logging.New(a.cfg.LogLevel, a.cfg.LogFormat)
	if err != nil {
		return err
	}
	a.log = log
	return nil
}
