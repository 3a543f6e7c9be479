package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var notificationsCmd = &cobra.Command{
	Use:     "notifications",
	Aliases: []string{"notif"},
	Short:   "Order notifications",
}

var notificationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List notifications",
	RunE:  runNotificationsList,
}

var notificationsReadCmd = &cobra.Command{
	Use:   "read <id>",
	Short: "Mark a notification as read",
	Args:  cobra.ExactArgs(1),
	RunE:  runNotificationsRead,
}

func init() {
	notificationsListCmd.Flags().Bool("unread", false, "only show unread notifications")

	notificationsCmd.AddCommand(notificationsListCmd)
	notificationsCmd.AddCommand(notificationsReadCmd)
	rootCmd.AddCommand(notificationsCmd)
}

func runNotificationsList(cmd *cobra.Command, args []string) error {
	unread, _ := cmd.Flags().GetBool("unread")

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	list, err := a.client.Notifications.List(context.Background())
	if err != nil {
		return err
	}
	if unread {
		kept := list[:0]
		for _, n := range list {
			if !n.Read {
				kept = append(kept, n)
			}
		}
		list = kept
	}

	if ok, err := printStructured(map[string]interface{}{
		"notifications": list,
		"count":         len(list),
	}); ok {
		return err
	}
	if len(list) == 0 {
		fmt.Println("No notifications")
		return nil
	}

	w := newTable()
	printTableHeader(w, "ID", "", "TITLE", "MESSAGE", "ORDER", "WHEN")
	for _, n := range list {
		mark := colorYellow("●")
		if n.Read {
			mark = " "
		}
		when := ""
		if !n.CreatedAt.IsZero() {
			when = n.CreatedAt.Local().Format("Jan 2 15:04")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			n.ID, mark, truncate(n.Title, 24), truncate(n.Message, 40), n.Order, when)
	}
	return w.Flush()
}

func runNotificationsRead(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.client.Notifications.MarkRead(context.Background(), args[0]); err != nil {
		return err
	}
	if ok, err := printStructured(map[string]interface{}{"id": args[0], "read": true}); ok {
		return err
	}
	fmt.Printf("%s Marked as read: %s\n", colorGreen("✓"), args[0])
	return nil
}
