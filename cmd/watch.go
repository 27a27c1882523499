// =============================================================================
// Statement Ingest - Watch Command
// =============================================================================
//
// The 'watch' command runs the process command once, then again on the
// configured cron schedule until interrupted.
//
// COMMAND USAGE:
//   ingest watch [--schedule "@every 5m"]
//
// A tick that arrives while the previous run is still busy is skipped.
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/robfig/cron"
	"github.com/spf13/cobra"

	"github.com/ginjaninja78/statement-ingest/internal/logger"
)

var watchSchedule string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Ingest the input directory on a schedule",
	Long: `The watch command processes the input directory immediately and then
on every tick of the cron schedule (schedule in config.yaml, or --schedule).

Accepted schedules include six-field cron expressions ("0 */5 * * * *")
and descriptors such as "@hourly" or "@every 5m".`,

	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := loadEnvironment("")
		if err != nil {
			return err
		}
		if watchSchedule != "" {
			env.main.Schedule = watchSchedule
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return runWatch(logger.WithContext(ctx, env.log), env, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringVar(
		&watchSchedule,
		"schedule",
		"",
		"Cron schedule overriding the schedule setting",
	)
}

// runWatch blocks until ctx is cancelled.
func runWatch(ctx context.Context, env *environment, out io.Writer) error {
	log := logger.FromContext(ctx)

	if _, err := cron.Parse(env.main.Schedule); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", env.main.Schedule, err)
	}

	var busy sync.Mutex
	run := func() {
		if !busy.TryLock() {
			log.Warn().Msg("previous run still in progress, skipping tick")
			return
		}
		defer busy.Unlock()

		if _, err := runProcess(ctx, env, processOptions{}, out); err != nil {
			log.Error().Err(err).Msg("scheduled run failed")
		}
	}

	run()

	c := cron.New()
	if err := c.AddFunc(env.main.Schedule, run); err != nil {
		return fmt.Errorf("failed to schedule run: %w", err)
	}
	c.Start()
	defer c.Stop()

	log.Info().Str("schedule", env.main.Schedule).Msg("watching input directory")

	<-ctx.Done()

	// Wait for a run in flight to finish.
	busy.Lock()
	busy.Unlock()

	log.Info().Msg("watch stopped")
	return nil
}
