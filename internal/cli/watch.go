package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/live-subtitle/backend/internal/job"
	"github.com/live-subtitle/backend/internal/notify"
	"github.com/live-subtitle/backend/internal/timer"
)

var watchLabel string

var watchCmd = &cobra.Command{
	Use:   "watch <jobID>",
	Short: "Poll a transcription job until it finishes",
	Long: `Poll the backend's job status endpoint with the same schedule the relay
uses and print each notification. Exits non-zero when the job fails or the
poller gives up.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

// errWatchIncomplete is returned when a watched job failed or timed out
var errWatchIncomplete = errors.New("job did not complete")

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	jobID := args[0]
	label := watchLabel
	if label == "" {
		label = jobID
	}

	out := cmd.OutOrStdout()
	terminal := make(chan notify.Notification, 1)

	bus := notify.NewBus(nil)
	bus.Subscribe(func(n notify.Notification) {
		fmt.Fprintf(out, "[%s] %s: %s\n", n.Kind, n.Title, n.Message)
		for _, prefix := range []string{"complete-", "failed-", "timeout-"} {
			if strings.HasPrefix(n.ID, prefix) {
				terminal <- n
				return
			}
		}
	})

	monitor := job.NewMonitor(job.NewHTTPStatusClient(backendURL(cfg)), bus, timer.Real{}, cfg.Poll)
	defer monitor.Close()
	monitor.Start(jobID, label, nil)

	select {
	case n := <-terminal:
		if n.Kind != notify.KindSuccess {
			return fmt.Errorf("%w: %s", errWatchIncomplete, n.Title)
		}
		return nil
	case <-cmd.Context().Done():
		return cmd.Context().Err()
	}
}

func init() {
	watchCmd.Flags().StringVar(&watchLabel, "label", "", "file name shown in notifications")
}
