package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/sumwatshade/tidevalve/cmd/hardware"
	"github.com/sumwatshade/tidevalve/cmd/settings"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactively write a config file",
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

// setupAnswers holds the form values as strings, the way huh inputs bind them.
type setupAnswers struct {
	Kind        string
	SerialPort  string
	ModbusAddr  string
	Station     string
	TideLow     string
	TideHigh    string
	OpenLimit   string
	ClosedLimit string
	Confirm     bool
}

func answersFromViper(v *viper.Viper) *setupAnswers {
	return &setupAnswers{
		Kind:        v.GetString("hardware.kind"),
		SerialPort:  v.GetString("hardware.serial.port"),
		ModbusAddr:  v.GetString("hardware.modbus.address"),
		Station:     v.GetString("tide.station"),
		TideLow:     strconv.FormatFloat(v.GetFloat64("tide.low"), 'f', -1, 64),
		TideHigh:    strconv.FormatFloat(v.GetFloat64("tide.high"), 'f', -1, 64),
		OpenLimit:   strconv.Itoa(v.GetInt("valve.open_limit")),
		ClosedLimit: strconv.Itoa(v.GetInt("valve.closed_limit")),
	}
}

// apply copies answers onto v. Values are assumed to have passed the form validators.
func (a *setupAnswers) apply(v *viper.Viper) error {
	low, err := strconv.ParseFloat(a.TideLow, 64)
	if err != nil {
		return err
	}
	high, err := strconv.ParseFloat(a.TideHigh, 64)
	if err != nil {
		return err
	}
	open, err := strconv.Atoi(a.OpenLimit)
	if err != nil {
		return err
	}
	closed, err := strconv.Atoi(a.ClosedLimit)
	if err != nil {
		return err
	}
	v.Set("hardware.kind", a.Kind)
	v.Set("hardware.serial.port", a.SerialPort)
	v.Set("hardware.modbus.address", a.ModbusAddr)
	v.Set("tide.station", strings.TrimSpace(a.Station))
	v.Set("tide.low", low)
	v.Set("tide.high", high)
	v.Set("valve.open_limit", open)
	v.Set("valve.closed_limit", closed)
	_, err = settings.Load(v)
	return err
}

func validateFloat(s string) error {
	_, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return errors.New("enter a number")
	}
	return nil
}

func validateInt(s string) error {
	_, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return errors.New("enter a whole number")
	}
	return nil
}

func portOptions(current string) []huh.Option[string] {
	ports, err := hardware.Ports()
	if err != nil || len(ports) == 0 {
		return []huh.Option[string]{huh.NewOption(current, current)}
	}
	opts := make([]huh.Option[string], 0, len(ports))
	for _, p := range ports {
		opts = append(opts, huh.NewOption(p, p))
	}
	return opts
}

func runSetup(cmd *cobra.Command, args []string) error {
	v := viper.GetViper()
	a := answersFromViper(v)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Hardware").
				Options(
					huh.NewOption("Simulator", hardware.KindSim),
					huh.NewOption("Modbus (TCP or RTU)", hardware.KindModbus),
					huh.NewOption("Serial line protocol", hardware.KindSerial),
				).
				Value(&a.Kind),
		),
		huh.NewGroup(
			huh.NewSelect[string]().Title("Serial port").Options(portOptions(a.SerialPort)...).Value(&a.SerialPort),
		).WithHideFunc(func() bool { return a.Kind != hardware.KindSerial }),
		huh.NewGroup(
			huh.NewInput().Title("Modbus address").Description("host:port or /dev/ttyUSB0").Value(&a.ModbusAddr),
		).WithHideFunc(func() bool { return a.Kind != hardware.KindModbus }),
		huh.NewGroup(
			huh.NewInput().Title("NOAA station id").Value(&a.Station).Validate(validateInt),
			huh.NewInput().Title("Tide height for an empty tank (ft)").Value(&a.TideLow).Validate(validateFloat),
			huh.NewInput().Title("Tide height for a full tank (ft)").Value(&a.TideHigh).Validate(validateFloat),
		),
		huh.NewGroup(
			huh.NewInput().Title("Servo position fully open").Value(&a.OpenLimit).Validate(validateInt),
			huh.NewInput().Title("Servo position fully closed").Value(&a.ClosedLimit).Validate(validateInt),
			huh.NewConfirm().Title("Write config?").Value(&a.Confirm),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}
	if !a.Confirm {
		fmt.Fprintln(cmd.OutOrStdout(), "Nothing written.")
		return nil
	}
	if err := a.apply(v); err != nil {
		return err
	}

	path := v.ConfigFileUsed()
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		path = filepath.Join(home, ".tidevalve.yaml")
	}
	if err := v.WriteConfigAs(path); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Wrote", path)
	return nil
}
