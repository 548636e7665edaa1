package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/fooddispatch/config"
	"github.com/kilianp07/fooddispatch/core/courier"
	"github.com/kilianp07/fooddispatch/infra/courier/stuart"
)

var (
	cancelReason string
	etaLeg       string
	courierWait  time.Duration
)

var courierCmd = &cobra.Command{
	Use:   "courier",
	Short: "Inspect and manage external courier jobs",
}

var courierJobCmd = &cobra.Command{
	Use:   "job <job-id>",
	Short: "Show an external job",
	Args:  cobra.ExactArgs(1),
	RunE: withCourier(func(ctx context.Context, cmd *cobra.Command, c *stuart.Client, id string) error {
		job, err := c.Job(ctx, id)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), job)
	}),
}

var courierCancelCmd = &cobra.Command{
	Use:   "cancel <job-id>",
	Short: "Cancel an external job",
	Args:  cobra.ExactArgs(1),
	RunE: withCourier(func(ctx context.Context, cmd *cobra.Command, c *stuart.Client, id string) error {
		if err := c.CancelJob(ctx, id, cancelReason); err != nil {
			return err
		}
		cmd.Printf("job %s cancelled\n", id)
		return nil
	}),
}

var courierETACmd = &cobra.Command{
	Use:   "eta <job-id>",
	Short: "Show the courier's ETA to pickup or drop-off",
	Args:  cobra.ExactArgs(1),
	RunE: withCourier(func(ctx context.Context, cmd *cobra.Command, c *stuart.Client, id string) error {
		eta, err := c.ETA(ctx, id, stuart.Leg(etaLeg))
		if err != nil {
			return err
		}
		cmd.Printf("%s eta: %s\n", etaLeg, eta.Round(time.Second))
		return nil
	}),
}

func init() {
	courierCmd.PersistentFlags().DurationVar(&courierWait, "timeout", 15*time.Second, "request timeout")
	courierCancelCmd.Flags().StringVar(&cancelReason, "reason", stuart.DefaultCancelReason, "cancellation reason")
	courierETACmd.Flags().StringVar(&etaLeg, "leg", string(stuart.LegPickup), "pickup or dropoff")
	courierCmd.AddCommand(courierJobCmd, courierCancelCmd, courierETACmd)
	rootCmd.AddCommand(courierCmd)
}

type courierAction func(ctx context.Context, cmd *cobra.Command, c *stuart.Client, jobID string) error

// withCourier builds the configured courier network without touching the
// database and hands the provider client to fn.
func withCourier(fn courierAction) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if cfg.Courier.Type == "" {
			return fmt.Errorf("no courier network configured")
		}
		network, err := courier.NewNetwork(cfg.Courier)
		if err != nil {
			return fmt.Errorf("courier network: %w", err)
		}
		client, ok := network.(*stuart.Client)
		if !ok {
			return fmt.Errorf("courier %s does not support job management", network.Name())
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), courierWait)
		defer cancel()
		return fn(ctx, cmd, client, args[0])
	}
}
