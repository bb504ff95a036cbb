// Command pager paginates API operations described by pagination model
// files, either once from the command line or as an HTTP service.
package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// rootOptions carries the configuration shared by all subcommands.
type rootOptions struct {
	configFile string
	v          *viper.Viper
}

// flagKeys maps persistent flags to their configuration keys.
var flagKeys = map[string]string{
	"log-level":  "log_level",
	"log-pretty": "log_pretty",
	"model-dir":  "model_dir",
	"redis-addr": "redis.addr",
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "pager",
		Short:         "Paginate API operations",
		Long:          "Runs paginated API operations to completion using pagination model files, from the command line or over HTTP.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			v, err := newViper(opts.configFile)
			if err != nil {
				return err
			}
			for flag, key := range flagKeys {
				if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
					return err
				}
			}
			opts.v = v
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "config file (default: pager.yaml in ., $HOME/.config/pager or /etc/pager)")
	flags.String("log-level", "info", `log level ("debug", "info", "warn", "error")`)
	flags.Bool("log-pretty", false, "human-readable console logs")
	flags.String("model-dir", "./models", "directory of <service>.paginators.json|yaml model files")
	flags.String("redis-addr", "", "redis address enabling the response cache and rate-limit tracking")

	rootCmd.AddCommand(
		newPaginateCmd(opts),
		newListCmd(opts),
		newServeCmd(opts),
	)
	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
