package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/fooddispatch/core/dispatch"
)

var (
	dispatchOrderID string
	dispatchDelayed bool
)

var dispatchCmd = &cobra.Command{
	Use:   "dispatch",
	Short: "Run one dispatch attempt for an order and print the result",
	RunE:  dispatchOrder,
}

func init() {
	dispatchCmd.Flags().StringVar(&dispatchOrderID, "order", "", "order id")
	dispatchCmd.Flags().BoolVar(&dispatchDelayed, "delayed", false, "skip predictive deferral")
	_ = dispatchCmd.MarkFlagRequired("order")
	rootCmd.AddCommand(dispatchCmd)
}

func dispatchOrder(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := loadService(ctx)
	if err != nil {
		return err
	}
	defer closeService(svc)

	res := svc.Manager.Dispatch(ctx, dispatch.Request{OrderID: dispatchOrderID, Delayed: dispatchDelayed})
	if err := printJSON(cmd.OutOrStdout(), res); err != nil {
		return err
	}
	if res.Outcome == dispatch.OutcomeSkipped || res.Outcome == dispatch.OutcomeUnassigned {
		return errors.New(res.Reason)
	}
	return nil
}
