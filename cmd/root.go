package cmd

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/sumwatshade/tidevalve/cmd/logging"
	"github.com/sumwatshade/tidevalve/cmd/settings"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tidevalve",
	Short: "Keep a tank's water level in step with the tide",
	Long: `Reads a float sensor, fetches the latest NOAA water level and drives a
servo valve so the tank fill level tracks the tide.

Without a subcommand an interactive dashboard is started. Use "daemon" to run
headless with an HTTP API.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := settings.Load(viper.GetViper())
		if err != nil {
			return err
		}
		// the dashboard owns the terminal, so logs only go to the file
		s.Log.Stderr = false
		log, out, err := logging.New(s.Log)
		if err != nil {
			return err
		}
		defer out.Close()

		rt, err := newRuntime(cmd.Context(), s, log)
		if err != nil {
			return err
		}
		defer rt.Close()

		p := tea.NewProgram(initialModel(rt), tea.WithAltScreen())
		_, err = p.Run()
		return err
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.tidevalve.yaml)")
	rootCmd.PersistentFlags().String("hardware", "", "hardware driver: sim, modbus or serial")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	cobra.CheckErr(viper.BindPFlag("hardware.kind", rootCmd.PersistentFlags().Lookup("hardware")))
	cobra.CheckErr(viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level")))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	home, err := os.UserHomeDir()
	cobra.CheckErr(err)

	settings.SetDefaults(viper.GetViper(), home)

	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Search config in home directory with name ".tidevalve" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".tidevalve")
	}

	settings.BindEnv(viper.GetViper())

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}
