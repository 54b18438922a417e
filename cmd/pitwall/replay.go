package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/yourusername/pitwall/internal/models"
	"github.com/yourusername/pitwall/internal/replay"
	"github.com/yourusername/pitwall/internal/session"
)

var (
	replayRaceID   int
	replayInterval time.Duration
	replayLaps     int
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a race lap by lap in the terminal",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runReplay(ctx, cmd.OutOrStdout())
	},
}

func init() {
	replayCmd.Flags().IntVar(&replayRaceID, "race", 0, "Race id to replay (default: the current race)")
	replayCmd.Flags().DurationVar(&replayInterval, "interval", 0, "Time between laps, whole seconds (default: replay.lap_interval)")
	replayCmd.Flags().IntVar(&replayLaps, "laps", 0, "Stop after this lap (default: the final lap)")
}

func runReplay(ctx context.Context, out io.Writer) error {
	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	interval := a.cfg.Replay.LapInterval
	if replayInterval > 0 {
		interval = replayInterval
	}
	if interval < time.Second || interval%time.Second != 0 {
		return fmt.Errorf("--interval must be a whole number of seconds, got %s", interval)
	}

	raceID := replayRaceID
	if raceID == 0 {
		race, err := a.provider.FetchCurrentRace(ctx)
		if err != nil {
			return fmt.Errorf("no --race given and current race unavailable: %w", err)
		}
		raceID = race.RaceID
		fmt.Fprintf(out, "%s (%s)\n", race.Name, race.Date)
	}

	ticks := replay.NewCronScheduler(a.log)
	defer ticks.Stop()

	sessions := session.NewManager(a.provider, ticks, session.ManagerConfig{
		LapInterval:   interval,
		DefaultMaxLap: a.cfg.Replay.DefaultMaxLap,
	}, a.log)
	defer sessions.CloseAll()

	sess, err := sessions.Open(ctx, raceID)
	if err != nil {
		return err
	}
	for series, msg := range sess.View().Errors {
		fmt.Fprintf(out, "warning: %s unavailable: %s\n", series, msg)
	}

	updates, cancel := sess.Subscribe()
	defer cancel()
	sess.Start()

	lastPrinted := 0
	for {
		select {
		case <-ctx.Done():
			sess.Pause()
			fmt.Fprintln(out, "replay interrupted")
			return nil
		case snap, ok := <-updates:
			if !ok {
				return nil
			}
			if snap.CurrentLap == lastPrinted {
				continue
			}
			lastPrinted = snap.CurrentLap
			fmt.Fprintln(out, formatLap(sess.ViewAt(snap)))
			if snap.AtEnd() || (replayLaps > 0 && snap.CurrentLap >= replayLaps) {
				sess.Pause()
				return nil
			}
		}
	}
}

// formatLap renders one line per lap: progress, the fastest driver on that lap
// and any pit stops made on it.
func formatLap(v session.View) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Lap %2d/%d [%3.0f%%]", v.CurrentLap, v.MaxLap, v.Progress*100)

	if record, ok := lo.Find(v.Laps, func(r models.LapRecord) bool { return r.Lap == v.CurrentLap }); ok && len(record.Times) > 0 {
		codes := lo.Keys(record.Times)
		sort.Strings(codes)
		fastest := lo.MinBy(codes, func(a, b string) bool { return record.Times[a] < record.Times[b] })
		fmt.Fprintf(&b, "  fastest %s %s", fastest, formatLapTime(record.Times[fastest]))
	}

	pits := lo.Filter(v.Pits, func(p models.PitEvent, _ int) bool { return p.Lap == v.CurrentLap })
	for _, p := range pits {
		fmt.Fprintf(&b, "  PIT %s %ss", p.Driver, p.Duration.String())
		if p.TireChange != "" {
			fmt.Fprintf(&b, " (%s)", p.TireChange)
		}
	}
	return b.String()
}

func formatLapTime(ms float64) string {
	d := time.Duration(ms * float64(time.Millisecond))
	minutes := int(d / time.Minute)
	seconds := (d % time.Minute).Seconds()
	return fmt.Sprintf("%d:%06.3f", minutes, seconds)
}
