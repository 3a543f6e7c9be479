package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Raj-venom/scrap-dai-client/internal/api"
	"github.com/Raj-venom/scrap-dai-client/internal/session"
)

var pickupsCmd = &cobra.Command{
	Use:   "pickups",
	Short: "Collector pickup queue",
}

var pickupsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List pending pickups",
	RunE:  runPickupsList,
}

var pickupsAcceptCmd = &cobra.Command{
	Use:   "accept <id>",
	Short: "Accept a pending pickup",
	Args:  cobra.ExactArgs(1),
	RunE:  runPickupsAccept,
}

var pickupsCompleteCmd = &cobra.Command{
	Use:   "complete <id>",
	Short: "Mark an accepted pickup as collected",
	Args:  cobra.ExactArgs(1),
	RunE:  runPickupsComplete,
}

func init() {
	pickupsCmd.AddCommand(pickupsListCmd)
	pickupsCmd.AddCommand(pickupsAcceptCmd)
	pickupsCmd.AddCommand(pickupsCompleteCmd)
	rootCmd.AddCommand(pickupsCmd)
}

func runPickupsList(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()
	if err := a.requireRole(ctx, session.RoleCollector); err != nil {
		return err
	}
	orders, err := a.client.Pickups.ListPending(ctx)
	if err != nil {
		return err
	}
	return printOrders(orders)
}

func runPickupsAccept(cmd *cobra.Command, args []string) error {
	return transitionPickup(args[0], true)
}

func runPickupsComplete(cmd *cobra.Command, args []string) error {
	return transitionPickup(args[0], false)
}

func transitionPickup(id string, accept bool) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()
	if err := a.requireRole(ctx, session.RoleCollector); err != nil {
		return err
	}

	var o *api.Order
	if accept {
		o, err = a.client.Pickups.Accept(ctx, id)
	} else {
		o, err = a.client.Pickups.Complete(ctx, id)
	}
	if err != nil {
		return err
	}

	if ok, err := printStructured(o); ok {
		return err
	}
	fmt.Printf("%s Pickup %s: %s\n", colorGreen("✓"), o.ID, formatOrderStatus(o.Status))
	return nil
}
