package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/prcadmin/prcadmin/internal/app/cli"
)

// envPrefix is the prefix of the environment variables, e.g. PRCADMIN_NTASKS=10.
const envPrefix = "PRCADMIN"

// newRootCmd creates the root command. The exit code of the subcommand that runs is stored in code.
func newRootCmd(out, errW io.Writer, code *cli.ExitCode) *cobra.Command {
	var cfgFile string

	v := viper.New()

	cmd := &cobra.Command{
		Use:   "prcadmin",
		Short: "Save the administrative divisions of the People's Republic of China.",
		Long: `prcadmin crawls the statistical division codes published by the National Bureau
of Statistics, from the provinces down to the villages, and saves every division
as a (code, name, level) row.

Every flag can also be set with an environment variable prefixed with PRCADMIN_,
e.g. PRCADMIN_NTASKS=10, or in a config file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return initConfig(v, cmd, cfgFile)
		},
	}

	cmd.SetOut(out)
	cmd.SetErr(errW)

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file, in yaml, json or toml")

	cmd.AddCommand(
		newCrawlCmd(v, out, errW, code),
		newSortCmd(errW, code),
	)

	return cmd
}

// initConfig merges the flags of the command, the environment variables and the config file, in that order of
// precedence.
func initConfig(v *viper.Viper, cmd *cobra.Command, cfgFile string) error {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("could not bind flags: %w", err)
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)

		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("could not read config file: %w", err)
		}
	}

	return nil
}
