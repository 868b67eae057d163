package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/itohio/pulsecam/pkg/monitor"
	"github.com/spf13/cobra"
)

func checkCmd(opts *options) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check whether this device can measure heart rate",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			c := monitor.New(opts.cfg, monitor.FactoryFromConfig(opts.cfg))
			defer c.Close()

			d := c.CheckCapabilities(ctx)
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "handheld: %v\n", d.IsHandheldDevice)
			fmt.Fprintf(w, "flashlight: %v\n", d.HasAuxiliaryIllumination)
			if !d.IsSupported {
				return fmt.Errorf("not supported: %s", d.UnsupportedReason)
			}
			fmt.Fprintln(w, "supported")
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "camera probe timeout")
	return cmd
}
