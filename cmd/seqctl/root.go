package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	appctx "seqstore/internal/core/context"
	"seqstore/internal/core/sequence"
	"seqstore/internal/infrastructure/storage/postgres"
	"seqstore/pkg/logger"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "seqctl",
	Short: "Manage and advance database-backed sequences.",
	Long: `seqctl creates the sequence table, issues values and inspects ` +
		`stored sequences. Connection settings come from flags, the ` +
		`environment or a .env file.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

// options shared by every subcommand
var opts struct {
	databaseURL string
	logLevel    string
	lockTimeout time.Duration
	table       string
}

func init() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&opts.databaseURL, "database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
	pf.StringVar(&opts.logLevel, "log-level", getEnv("LOG_LEVEL", "warn"), "log level: debug, info, warn, error")
	pf.DurationVar(&opts.lockTimeout, "lock-timeout", getEnvDuration("DB_LOCK_TIMEOUT", 5*time.Second), "maximum wait for a sequence row lock")
	pf.StringVar(&opts.table, "table", getEnv("SEQUENCE_TABLE", sequence.DefaultTable), "sequence table name")
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setup(cmd *cobra.Command, args []string) error {
	log, err := logger.New(logger.Config{Level: opts.logLevel, Development: true})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger.SetDefault(log)

	ctx, _ := appctx.EnsureTrace(cmd.Context())
	cmd.SetContext(ctx)
	return nil
}

// mapping returns the table mapping selected by --table.
func mapping() sequence.TableMapping {
	return sequence.TableMapping{Table: opts.table}.WithDefaults()
}

// connect opens a small pool and a transaction manager bound to it.
func connect(ctx context.Context) (*postgres.Pool, *postgres.TxManager, error) {
	if opts.databaseURL == "" {
		return nil, nil, fmt.Errorf("database url is required (--database-url or DATABASE_URL)")
	}

	cfg := postgres.DefaultPoolConfig(opts.databaseURL)
	cfg.ApplicationName = "seqctl"
	cfg.MaxConns = 2
	cfg.MinConns = 0

	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	txOpts := postgres.DefaultTxOptions()
	txOpts.LockTimeout = opts.lockTimeout
	return pool, postgres.NewTxManager(pool, txOpts), nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
