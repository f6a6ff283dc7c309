package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		return dumpConfig(cmd, viper.GetViper())
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func dumpConfig(cmd *cobra.Command, v *viper.Viper) error {
	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(v.AllSettings()); err != nil {
		return err
	}
	return enc.Close()
}
