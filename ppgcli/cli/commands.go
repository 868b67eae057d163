// Package cli implements the headless pulse measurement commands.
package cli

import (
	"fmt"

	"github.com/itohio/pulsecam/pkg/config"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// options are shared by all commands.
type options struct {
	configPath string
	logLevel   string
	mock       bool

	cfg *config.Config
}

// New returns the root command.
func New() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "ppgcli",
		Short: "Measure heart rate from a camera pressed against a fingertip",
		Long: `Measure heart rate from the brightness of a fingertip pressed against a
camera lens. Runs live sessions, checks device support and replays recorded
luminance traces through the same signal pipeline.
`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load()
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "config.yaml", "configuration file path")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level (overrides config)")
	flags.BoolVar(&opts.mock, "mock", false, "use the simulated camera")

	cmd.AddCommand(checkCmd(opts))
	cmd.AddCommand(measureCmd(opts))
	cmd.AddCommand(analyzeCmd(opts))
	return cmd
}

func (o *options) load() error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if o.mock {
		cfg.Camera.Driver = "mock"
	}
	if err := cfg.ApplyLogLevel(); err != nil {
		return err
	}
	log.WithField("config", o.configPath).Debug("configuration loaded")
	o.cfg = cfg
	return nil
}
