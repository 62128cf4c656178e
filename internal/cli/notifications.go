package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/live-subtitle/backend/internal/notify"
)

var markRead bool

var notificationsCmd = &cobra.Command{
	Use:   "notifications",
	Short: "List job notifications stored by the backend",
	RunE:  runNotifications,
}

func runNotifications(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	bus := notify.NewBus(notify.NewStoreClient(backendURL(cfg)))

	list, err := bus.FetchPersisted(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(list) == 0 {
		fmt.Fprintln(out, "No notifications.")
	} else {
		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "\tKIND\tJOB\tCREATED\tMESSAGE")
		for _, n := range list {
			unread := "*"
			if n.IsRead {
				unread = ""
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", unread, n.Kind, n.JobID, n.CreatedAt.Local().Format("2006-01-02 15:04"), n.Message)
		}
		tw.Flush()
	}

	if markRead {
		if err := bus.MarkAllRead(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintf(out, "Marked %d notifications read.\n", len(list))
	}
	return nil
}

func init() {
	notificationsCmd.Flags().BoolVar(&markRead, "mark-read", false, "mark every notification read")
}
