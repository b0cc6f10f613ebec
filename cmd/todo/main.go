package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	flag "github.com/spf13/pflag"

	"firetodo/internal/config"
	"firetodo/internal/logging"
	"firetodo/internal/storage"
	"firetodo/internal/ui"
)

type options struct {
	configPath string
	backend    string
	logFile    string
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("todo", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVarP(&opts.configPath, "config", "c", "", "path to config.toml (default $XDG_CONFIG_HOME/firetodo/config.toml)")
	fs.StringVar(&opts.backend, "backend", "", "store backend: firestore, sqlite, redis or memory")
	fs.StringVar(&opts.logFile, "log-file", "", "append logs to this file")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if fs.NArg() > 0 {
		return opts, fmt.Errorf("unexpected argument %q", fs.Arg(0))
	}
	if opts.configPath == "" {
		opts.configPath = config.ResolveConfigPath()
	}
	return opts, nil
}

// loadConfig layers the config file, the environment and the flags, in that
// order, and validates the result.
func loadConfig(opts options) (config.Config, error) {
	cfg, err := config.LoadOrCreate(opts.configPath)
	if err != nil {
		return cfg, err
	}
	if err := config.ApplyEnv(&cfg); err != nil {
		return cfg, err
	}
	if opts.backend != "" {
		cfg.Backend = opts.backend
	}
	if opts.logFile != "" {
		cfg.Log.File = opts.logFile
	}
	return cfg, cfg.Validate()
}

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

// run returns the process exit code so deferred closes happen on every path.
func run(args []string, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintf(stderr, "failed to parse flags: %v\n", err)
		return 2
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		fmt.Fprintf(stderr, "failed to load config: %v\n", err)
		return 1
	}

	logger, logCloser, err := logging.Open(cfg.Log.File, cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(stderr, "failed to open log: %v\n", err)
		return 1
	}
	defer logCloser.Close()
	logger.Info("starting", "backend", cfg.Backend, "config", opts.configPath)

	ctx := context.Background()
	store, err := storage.Open(ctx, storage.Options{
		Backend:         cfg.Backend,
		CredentialsFile: cfg.Firestore.CredentialsFile,
		ProjectID:       cfg.Firestore.ProjectID,
		Collection:      cfg.Firestore.Collection,
		DBPath:          cfg.SQLite.DBPath,
		RedisAddr:       cfg.Redis.Addr,
		RedisPassword:   cfg.Redis.Password,
		RedisDB:         cfg.Redis.DB,
		Logger:          logger,
	})
	if err != nil {
		logger.Error("open store", "err", err)
		fmt.Fprintf(stderr, "failed to open store: %v\n", err)
		return 1
	}
	defer store.Close()

	if err := ui.Run(ctx, store, cfg, logger); err != nil {
		logger.Error("program exited", "err", err)
		fmt.Fprintf(stderr, "error running program: %v\n", err)
		return 1
	}
	return 0
}
