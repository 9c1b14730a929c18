package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "stagebuildctl",
		Short: "Drive the slot-based stage builder against a JSON logical-tree fixture",
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $HOME/.stagebuildctl.yaml)")
	root.AddCommand(newBuildCmd())
	cobra.OnInitialize(initConfig)
	return root
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName(".stagebuildctl")
		viper.AddConfigPath("$HOME")
	}
	viper.SetEnvPrefix("STAGEBUILDCTL")
	viper.AutomaticEnv()
	_ = viper.ReadInConfig()
}
