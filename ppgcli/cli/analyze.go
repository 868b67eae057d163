package cli

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/itohio/pulsecam/pkg/meter"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func analyzeCmd(opts *options) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "analyze FILE...",
		Short: "Replay recorded luminance traces",
		Long: `Replay recorded luminance traces through the measurement pipeline.
Each file holds one sample per line, or CSV whose first column is the sample.
An optional header line and '#' comments are ignored. Use - for stdin.
Every file starts from an empty signal buffer.
`,
		Example: `ppgcli analyze session.csv`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			an := newAnalyzer(meter.ParamsFrom(opts.cfg.Engine), w, all)
			for _, name := range args {
				samples, err := readTrace(cmd, name)
				if err != nil {
					return err
				}
				log.WithFields(log.Fields{"file": name, "samples": len(samples)}).Debug("trace loaded")

				if len(args) > 1 {
					fmt.Fprintf(w, "== %s\n", name)
				}
				printSummary(w, an.run(samples))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "print every analysis, not only changes")
	return cmd
}

func readTrace(cmd *cobra.Command, name string) ([]float64, error) {
	if name == "-" {
		return parseTrace(cmd.InOrStdin())
	}
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace: %w", err)
	}
	defer f.Close()
	return parseTrace(f)
}

// analysis is the outcome of a replayed trace.
type analysis struct {
	Samples  int
	Updates  int
	Detected []int
	Final    meter.SignalData
}

// analyzer replays traces through one meter, reset between traces.
type analyzer struct {
	meter *meter.Meter
	w     io.Writer
	all   bool

	cur  analysis
	last string
}

func newAnalyzer(p meter.Params, w io.Writer, all bool) *analyzer {
	an := &analyzer{meter: meter.New(p), w: w, all: all}
	an.meter.OnUpdate(func(d meter.SignalData) {
		an.cur.Updates++
		line := formatReading(d)
		if an.all || line != an.last {
			fmt.Fprintf(an.w, "#%d %s\n", an.cur.Updates, line)
		}
		an.last = line
	})
	an.meter.OnDetected(func(bpm int) {
		an.cur.Detected = append(an.cur.Detected, bpm)
		fmt.Fprintf(an.w, "#%d stable heart rate: %d BPM\n", an.cur.Updates, bpm)
	})
	return an
}

// run feeds samples through the meter and reports readings as they change.
func (an *analyzer) run(samples []float64) analysis {
	an.meter.Reset()
	an.meter.ResetShutdown()
	an.cur = analysis{Samples: len(samples)}
	an.last = ""

	in := make(chan float64, 64)
	go func() {
		defer close(in)
		for _, v := range samples {
			in <- v
		}
	}()
	an.meter.ProcessSamples(in)

	an.cur.Final = an.meter.Snapshot()
	return an.cur
}

// analyze replays one trace through a fresh meter.
func analyze(samples []float64, p meter.Params, w io.Writer, all bool) analysis {
	return newAnalyzer(p, w, all).run(samples)
}

func formatReading(d meter.SignalData) string {
	bpm := "--"
	if d.BPM != nil {
		bpm = strconv.Itoa(*d.BPM)
	}
	state := "measuring"
	if d.IsStable {
		state = "stable"
	}
	return fmt.Sprintf("bpm=%s quality=%d %s", bpm, d.SignalQuality, state)
}

func printSummary(w io.Writer, res analysis) {
	fmt.Fprintf(w, "samples: %d, analyses: %d\n", res.Samples, res.Updates)
	if len(res.Detected) == 0 {
		fmt.Fprintln(w, "no stable heart rate detected")
		return
	}
	fmt.Fprintf(w, "heart rate: %d BPM\n", res.Detected[len(res.Detected)-1])
}

// parseTrace reads one sample per record from the first CSV column.
// A non-numeric first record is a header. Later non-numeric values become
// NaN so the meter drops them like unusable frames.
func parseTrace(r io.Reader) ([]float64, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.Comment = '#'
	cr.TrimLeadingSpace = true

	var (
		samples []float64
		first   = true
	)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read trace: %w", err)
		}

		field := strings.TrimSpace(rec[0])
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			if first {
				first = false
				continue
			}
			line, _ := cr.FieldPos(0)
			log.WithField("line", line).Debugf("invalid sample %q", field)
			v = math.NaN()
		}
		first = false
		samples = append(samples, v)
	}

	if len(samples) == 0 {
		return nil, errors.New("trace contains no samples")
	}
	return samples, nil
}
