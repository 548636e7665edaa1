package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kilianp07/fooddispatch/app"
	"github.com/kilianp07/fooddispatch/config"
	"github.com/kilianp07/fooddispatch/infra/logger"
)

var (
	cfgPath string
	envFile string
)

var rootCmd = &cobra.Command{
	Use:   "fooddispatch",
	Short: "Order dispatch service",
	RunE:  run,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Consume placed orders and dispatch them",
	RunE:  run,
}

func init() {
	rootCmd.PersistentPreRunE = preRun
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "config.yaml", "configuration file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the configuration")
	rootCmd.AddCommand(serveCmd)
}

// preRun keeps stdout clean for commands that print JSON and loads the
// dotenv file. A missing default file is fine; an explicit one must exist.
func preRun(cmd *cobra.Command, args []string) error {
	if cmd != rootCmd && cmd != serveCmd {
		logger.SetOutput(os.Stderr)
	}
	if err := godotenv.Load(envFile); err != nil && cmd.Flags().Changed("env-file") {
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

func run(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := loadService(ctx)
	if err != nil {
		return err
	}
	defer closeService(svc)
	return svc.Run(ctx)
}

func loadService(ctx context.Context) (*app.Service, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return app.New(ctx, cfg)
}

func closeService(svc *app.Service) {
	if err := svc.Close(); err != nil {
		logger.New("main").Errorf("service close: %v", err)
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
