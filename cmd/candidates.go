package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var candidatesOrderID string

var candidatesCmd = &cobra.Command{
	Use:   "candidates",
	Short: "List the drivers eligible for an order without assigning",
	RunE:  listCandidates,
}

func init() {
	candidatesCmd.Flags().StringVar(&candidatesOrderID, "order", "", "order id")
	_ = candidatesCmd.MarkFlagRequired("order")
	rootCmd.AddCommand(candidatesCmd)
}

func listCandidates(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	svc, err := loadService(ctx)
	if err != nil {
		return err
	}
	defer closeService(svc)

	store := svc.Store()
	order, err := store.GetOrder(ctx, candidatesOrderID)
	if err != nil {
		return fmt.Errorf("order %s: %w", candidatesOrderID, err)
	}
	chef, err := store.GetChef(ctx, order.ChefID)
	if err != nil {
		return fmt.Errorf("chef %s: %w", order.ChefID, err)
	}
	if chef.Location == nil {
		return fmt.Errorf("chef %s has no location", chef.ID)
	}
	settings, err := store.Settings(ctx)
	if err != nil {
		return fmt.Errorf("settings: %w", err)
	}
	drivers, err := store.ListDrivers(ctx)
	if err != nil {
		return fmt.Errorf("list drivers: %w", err)
	}
	cands, stats := svc.Filter.Candidates(ctx, *chef.Location, drivers, settings)
	cmd.PrintErrf("considered %d drivers, %d in coarse radius, %d route lookups (%d failed)\n",
		stats.Considered, stats.Coarse, stats.RouteLookups, stats.RouteFailures)
	return printJSON(cmd.OutOrStdout(), cands)
}
