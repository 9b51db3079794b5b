package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile    string
	dataDir    string
	appVersion string // set in Execute, stamped into /status responses
)

// Execute creates the root command tree and runs it.
func Execute(version, commit, date string) error {
	appVersion = version
	rootCmd := newRootCmd(version, commit, date)
	return rootCmd.Execute()
}

func newRootCmd(version, commit, date string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "anticlanker",
		Short: "LLM-backed spam moderation for GroupMe",
		Long: `Anticlanker watches a GroupMe group through a bot callback, classifies every
message with a local LLM, and removes spammers on a strike system. It also
exposes the classifier over a key-protected HTTP API for other projects.

The server refuses admin operations until an admin credential is provisioned
with 'anticlanker admin init'.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./anticlanker.yaml)")
	cmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory for the credential database (default: ~/.anticlanker)")

	cobra.OnInitialize(initConfig)

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newVersionCmd(version, commit, date))
	cmd.AddCommand(newAdminCmd())
	cmd.AddCommand(newKeyCmd())
	cmd.AddCommand(newStatusCmd())

	return cmd
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("anticlanker")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.anticlanker")
	}

	viper.SetEnvPrefix("ANTICLANKER")
	viper.AutomaticEnv()
	viper.ReadInConfig() // Ignore error - config file is optional
}
