package cmd

import (
	"fmt"
	"os"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"civic-vote/config"
)

// cfgFile represents the config file path.
var cfgFile string

const rootCmdLongDesc = `civic runs the Aadhaar registry console and the voting portal
backed by a proof-of-work vote ledger.

Settings are read from flags, CIVIC_* environment variables and an
optional YAML file (default $HOME/.civic.yaml).`

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:          "civic",
	Short:        "Civic registry and voting backend",
	Long:         rootCmdLongDesc,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.civic.yaml)")
	rootCmd.PersistentFlags().String("verbosity", config.DefaultConfig.Verbosity, "sets the logger verbosity level ('debug', 'info', 'warn', 'error')")
	viper.BindPFlag(config.KeyVerbosity, rootCmd.PersistentFlags().Lookup("verbosity"))

	rootCmd.AddCommand(serveCmd, statusCmd, auditCmd)
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	config.SetDefaults(viper.GetViper())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		// Search config in home directory with name ".civic" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigName(".civic")
	}

	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}
}
