package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mj1618/desktop-narrator/internal/output"
	"github.com/mj1618/desktop-narrator/internal/session"
)

var replayCmd = &cobra.Command{
	Use:   "replay <script>",
	Short: "Replay a notification script and print the spoken output",
	Long: `Replay a YAML or JSON script through the observer manager, the focus
trackers and the selection echo. Every output job is printed when the replay
finishes, or as it is produced with --stream.

With --watch the script is replayed again each time the file changes, until
interrupted.

Examples:
  desktop-narrator replay editor.yaml
  desktop-narrator replay editor.yaml --stream --format json
  desktop-narrator replay editor.yaml --watch --pace 200`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().Bool("stream", false, "Print each output job as it is produced")
	replayCmd.Flags().Bool("watch", false, "Replay again whenever the script file changes")
	replayCmd.Flags().Int("pace", -1, "Delay between steps in milliseconds (default: config)")
	replayCmd.Flags().Bool("continue-on-error", false, "Keep replaying after a failing step")
}

func runReplay(cmd *cobra.Command, args []string) error {
	path := args[0]
	stream, _ := cmd.Flags().GetBool("stream")
	watch, _ := cmd.Flags().GetBool("watch")
	paceMs, _ := cmd.Flags().GetInt("pace")
	keepGoing, _ := cmd.Flags().GetBool("continue-on-error")

	var opts []session.Option
	if paceMs >= 0 {
		opts = append(opts, session.WithPace(time.Duration(paceMs)*time.Millisecond))
	}
	if keepGoing {
		opts = append(opts, session.WithStopOnError(false))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	replay := func(ctx context.Context) error {
		return replayOnce(ctx, out, path, stream, opts...)
	}
	if !watch {
		return replay(ctx)
	}
	return watchScript(ctx, path, 100*time.Millisecond, logger, replay)
}

func replayOnce(ctx context.Context, w io.Writer, path string, stream bool, opts ...session.Option) error {
	if stream {
		opts = append(opts, session.WithSink(output.NewWriterSink(w, output.OutputFormat, logger)))
	}
	sess, err := openSession(path, opts...)
	if err != nil {
		return err
	}
	defer sess.Close()

	res, err := sess.Run(ctx)
	if err != nil {
		return err
	}
	logger.Info("replay finished",
		zap.String("script", res.Script),
		zap.Int("steps", res.Steps),
		zap.Int("completed", res.Completed),
		zap.Int("jobs", len(res.Jobs)))
	if stream {
		res.Jobs = nil
	}
	if err := output.Fprint(w, res); err != nil {
		return err
	}
	if res.Error != "" {
		return fmt.Errorf("replay %s stopped after %d of %d steps: %s", res.Script, res.Completed, res.Steps, res.Error)
	}
	return nil
}
