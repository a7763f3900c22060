package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	cfgcmd "github.com/ppcsplit/ppcsplit/cmd/config"
	objcmd "github.com/ppcsplit/ppcsplit/cmd/obj"
	"github.com/ppcsplit/ppcsplit/cmd/tools"
)

var cfgFile string

// RootCmd represents the base command when called without any subcommands.
var RootCmd = &cobra.Command{
	Use:   "ppcsplit",
	Short: "Split a linked PowerPC/GameCube-Wii executable back into relocatables",
	Long: `ppcsplit propagates CodeWarrior's linker-visible split boundaries (ctors/dtors
tables, extabindex, common-BSS), resolves a topological link order from them,
and reconstructs one relocatable object per translation unit, emitting
GNU-assembler text for each.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	err := RootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.ppcsplit.yaml)")
	RootCmd.AddCommand(objcmd.ObjCmd, cfgcmd.ConfigCmd, tools.ToolsCmd)
	cobra.OnInitialize(initConfig)
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".ppcsplit" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".ppcsplit")
	}

	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}
