package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/sumwatshade/tidevalve/cmd/settings"
)

func TestDumpConfig(t *testing.T) {
	v := viper.New()
	settings.SetDefaults(v, t.TempDir())

	out := &bytes.Buffer{}
	c := &cobra.Command{}
	c.SetOut(out)
	if err := dumpConfig(c, v); err != nil {
		t.Fatalf("dumpConfig() err=%v", err)
	}
	for _, want := range []string{"sample_interval: 200ms", "9410170", "closed_limit: 180", "retry_interval: 10s"} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("dump missing %q:\n%s", want, out.String())
		}
	}
}

func TestSetupAnswersApply(t *testing.T) {
	v := viper.New()
	settings.SetDefaults(v, t.TempDir())

	a := answersFromViper(v)
	if a.Kind != "sim" || a.OpenLimit != "80" || a.TideLow != "-1" {
		t.Fatalf("answers = %+v", a)
	}
	a.Kind = "modbus"
	a.ModbusAddr = "plc.local:502"
	a.Station = " 9414290 "
	a.TideHigh = "7.5"
	if err := a.apply(v); err != nil {
		t.Fatalf("apply() err=%v", err)
	}
	if v.GetString("tide.station") != "9414290" || v.GetFloat64("tide.high") != 7.5 || v.GetString("hardware.kind") != "modbus" {
		t.Fatalf("viper not updated: %v", v.AllSettings())
	}

	a.OpenLimit = "200"
	if err := a.apply(v); err == nil {
		t.Fatal("expected validation error for inverted valve limits")
	}
}
