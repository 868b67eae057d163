package cli

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/itohio/pulsecam/pkg/meter"
	"github.com/itohio/pulsecam/pkg/monitor"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func measureCmd(opts *options) *cobra.Command {
	var (
		duration    time.Duration
		untilStable bool
		record      string
	)
	cmd := &cobra.Command{
		Use:   "measure",
		Short: "Run a live measurement",
		Long: `Run a live measurement. Cover the camera and flashlight with a fingertip
and keep still until a stable heart rate is reported.
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if duration > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, duration)
				defer cancel()
			}

			res, err := measure(ctx, opts, untilStable)
			if err != nil {
				return err
			}
			if record != "" && len(res.Samples) > 0 {
				if err := saveTrace(record, res.Samples); err != nil {
					return err
				}
				log.WithFields(log.Fields{"file": record, "samples": len(res.Samples)}).Info("trace recorded")
			}
			if res.BPM == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no stable heart rate detected")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "heart rate: %d BPM\n", res.BPM)
			return nil
		},
	}
	cmd.Flags().DurationVarP(&duration, "duration", "d", 30*time.Second, "maximum measurement time (0 = until interrupted)")
	cmd.Flags().BoolVar(&untilStable, "until-stable", true, "stop at the first stable heart rate")
	cmd.Flags().StringVar(&record, "record", "", "write the final signal buffer to this file for analyze")
	return cmd
}

// measurement is the outcome of a live session.
type measurement struct {
	BPM     int // last stable BPM, 0 if none
	Samples []float64
}

// measure runs one session until ctx ends, the stream fails or, with
// untilStable, a stable reading is detected.
func measure(ctx context.Context, opts *options, untilStable bool) (measurement, error) {
	var (
		mu      sync.Mutex
		bpm     int
		failure string
		last    string
	)
	ended := make(chan struct{})
	var endOnce sync.Once
	end := func() { endOnce.Do(func() { close(ended) }) }

	c := monitor.New(opts.cfg, monitor.FactoryFromConfig(opts.cfg),
		monitor.WithOnUpdate(func(d meter.SignalData) {
			line := formatReading(d)
			mu.Lock()
			changed := line != last
			last = line
			mu.Unlock()
			if changed {
				log.Info(line)
			}
		}),
		monitor.WithOnBPMDetected(func(v int) {
			mu.Lock()
			bpm = v
			mu.Unlock()
			if untilStable {
				end()
			}
		}),
		monitor.WithOnError(func(msg string) {
			mu.Lock()
			failure = msg
			mu.Unlock()
			end()
		}),
	)
	defer c.Close()

	if err := c.Start(ctx); err != nil {
		if errors.Is(err, monitor.ErrStopped) {
			return measurement{}, nil
		}
		return measurement{}, errors.New(monitor.Describe(err))
	}

	select {
	case <-ctx.Done():
	case <-ended:
	}
	c.Stop()

	res := measurement{Samples: c.Samples()}
	mu.Lock()
	defer mu.Unlock()
	res.BPM = bpm
	if failure != "" {
		return res, errors.New(failure)
	}
	return res, nil
}

// saveTrace writes samples in the format parseTrace reads.
func saveTrace(name string, samples []float64) error {
	f, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("failed to create trace: %w", err)
	}
	if err := writeTrace(f, samples); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeTrace(w io.Writer, samples []float64) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"luminance"}); err != nil {
		return fmt.Errorf("failed to write trace: %w", err)
	}
	for _, v := range samples {
		if err := cw.Write([]string{strconv.FormatFloat(v, 'f', 4, 64)}); err != nil {
			return fmt.Errorf("failed to write trace: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
