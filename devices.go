package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/bcl/mac-ctrl/command"
	"github.com/bcl/mac-ctrl/endpoint"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func init() {
	tempCmd.Flags().Bool("max", false, "print only the hottest reading")

	fanCmd.Flags().IntP("id", "i", 0, "fan to query or adjust (all fans when 0)")
	for _, cmd := range []*cobra.Command{fanCmd, kbdCmd, displayCmd} {
		cmd.Flags().Bool("min", false, "print the lowest accepted value")
		cmd.Flags().Bool("max", false, "print the highest accepted value")
		cmd.MarkFlagsMutuallyExclusive("min", "max")
	}

	rootCmd.AddCommand(tempCmd, fanCmd, kbdCmd, displayCmd)
}

const commandUsage = `COMMAND is one of:
  N     set to N
  N%    set to N percent of the maximum
  N+    raise by N
  N-    lower by N
  N%+   raise by N percent of the maximum
  N%-   lower by N percent of the maximum`

var (
	tempCmd = &cobra.Command{
		Use:   "temp",
		Short: "Print the CPU temperatures in degrees Celsius",
		Args:  cobra.NoArgs,
		RunE:  runTemp,
	}
	fanCmd = &cobra.Command{
		Use:   "fan [COMMAND]",
		Short: "Print or adjust the minimum fan speed",
		Long:  "Without COMMAND print the distinct speeds of the fans.\n\n" + commandUsage,
		Args:  cobra.MaximumNArgs(1),
		RunE:  runFan,
	}
	kbdCmd = &cobra.Command{
		Use:   "kbd [COMMAND]",
		Short: "Print or adjust the keyboard backlight",
		Long:  commandUsage,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			return a.runBounded(cmd, args, a.module.Keyboard())
		},
	}
	displayCmd = &cobra.Command{
		Use:   "display [COMMAND]",
		Short: "Print or adjust the display backlight",
		Long:  commandUsage,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			return a.runBounded(cmd, args, a.module.Display())
		},
	}
)

func joinInts(values []int, sep string) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, sep)
}

func runTemp(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	logger := a.logger
	sensors := a.module.Temperatures()
	if !sensors.Supported() {
		return unsupported(logger, endpoint.KindTemperature, endpoint.ErrUnsupported)
	}

	if hottest, _ := cmd.Flags().GetBool("max"); hottest {
		value, err := sensors.Max()
		if err != nil {
			return unsupported(logger, endpoint.KindTemperature, err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), value)
		return nil
	}

	readings, err := sensors.Readings()
	if err != nil {
		return err
	}
	values := make([]int, len(readings))
	for i, r := range readings {
		values[i] = r.Celsius
	}
	fmt.Fprintln(cmd.OutOrStdout(), joinInts(values, " "))
	return nil
}

// bound returns the value selected by --min or --max, or false when neither is set.
func bound(cmd *cobra.Command, ep endpoint.Endpoint) (int, bool, error) {
	if lowest, _ := cmd.Flags().GetBool("min"); lowest {
		v, err := ep.Min()
		return v, true, err
	}
	if highest, _ := cmd.Flags().GetBool("max"); highest {
		v, err := ep.Max()
		return v, true, err
	}
	return 0, false, nil
}

// report warns about every outcome other than a plain write.
func report(logger zerolog.Logger, kind endpoint.Kind, res command.Resolution) {
	if res.Status == command.StatusApplied {
		return
	}
	event := logger.Warn().Str("endpoint", string(kind)).Str("command", res.Command.String())
	switch res.Status {
	case command.StatusRejected:
		event.Msg("Value out of range, nothing changed")
	case command.StatusReadOnly:
		event.Msg("Endpoint is read-only, nothing changed")
	case command.StatusUnsupported:
		event.Msg("Not supported on this hardware")
	case command.StatusClipped:
		event.Int("value", res.Value).Msg("Value clipped to range")
	}
}

func (a *app) runBounded(cmd *cobra.Command, args []string, ep endpoint.Endpoint) error {
	out := cmd.OutOrStdout()

	if len(args) == 0 {
		v, ok, err := bound(cmd, ep)
		if !ok {
			v, err = ep.Get()
		}
		if err != nil {
			return unsupported(a.logger, ep.Kind(), err)
		}
		fmt.Fprintln(out, v)
		return nil
	}

	res, err := a.interpreter.Apply(args[0], ep)
	if err != nil {
		return err
	}
	report(a.logger, ep.Kind(), res)
	if res.Status != command.StatusUnsupported {
		fmt.Fprintln(out, res.Current)
	}
	return nil
}

func runFan(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	fans := a.module.Fans()
	if !fans.Supported() {
		if len(args) > 0 {
			if _, err := command.Parse(args[0]); err != nil {
				return err
			}
		}
		return unsupported(a.logger, endpoint.KindFan, endpoint.ErrUnsupported)
	}

	if id, _ := cmd.Flags().GetInt("id"); id != 0 {
		fan, err := fans.Lookup(id)
		if err != nil {
			return err
		}
		return a.runBounded(cmd, args, fan)
	}

	out := cmd.OutOrStdout()
	if len(args) == 0 {
		lowest, _ := cmd.Flags().GetBool("min")
		highest, _ := cmd.Flags().GetBool("max")
		if lowest || highest {
			all, err := fans.All()
			if err != nil {
				return err
			}
			values := make([]int, len(all))
			for i, fan := range all {
				if values[i], _, err = bound(cmd, fan); err != nil {
					return err
				}
			}
			fmt.Fprintln(out, joinInts(values, " "))
			return nil
		}

		speeds, err := fans.Speeds()
		if err != nil {
			return err
		}
		fmt.Fprintln(out, joinInts(speeds, "/"))
		return nil
	}

	res, states, err := a.interpreter.ApplyFans(args[0], fans)
	if err != nil {
		return err
	}
	report(a.logger, endpoint.KindFan, res)

	if !res.Status.Accepted() {
		speeds, err := fans.Speeds()
		if err != nil {
			return err
		}
		fmt.Fprintln(out, joinInts(speeds, "/"))
		return nil
	}
	fmt.Fprintln(out, joinInts(distinctSpeeds(states), "/"))
	return nil
}

// distinctSpeeds collapses the post-write speeds so that fans running at the
// same speed print once.
func distinctSpeeds(states []endpoint.FanState) []int {
	seen := make(map[int]bool, len(states))
	speeds := make([]int, 0, len(states))
	for _, state := range states {
		if !seen[state.Current] {
			seen[state.Current] = true
			speeds = append(speeds, state.Current)
		}
	}
	sort.Ints(speeds)
	return speeds
}
