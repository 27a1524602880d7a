// Package cmd provides the root command and CLI setup for sectionforge.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sectionforge/sectionforge/internal/config"
	"github.com/sectionforge/sectionforge/internal/logging"
)

// sourceFlag and distFlag are root-level flags shared by build and watch.
var sourceFlag string
var distFlag string

// minifyFlag enables script-slot minification in compiled outputs.
var minifyFlag bool

const rootLongDescription = `Sectionforge flattens themed site sections into single output files.

A section is either a single file directly under <source>/sections, copied
through verbatim, or a folder of role-typed component files (style.liquid,
template.liquid, javascript.js, schema.json) concatenated into one
<dist>/sections/<name>.liquid file in a fixed role order.`

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "sectionforge",
	Short: "Flatten themed site sections into single output files",
	Long:  rootLongDescription,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}

func init() {
	config.Init()
	configureRootFlags(rootCmd)
}

func configureRootFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVarP(&sourceFlag, config.SourceKey, "s",
		viper.GetString(config.SourceKey), "source root containing the sections directory")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(config.SourceKey), config.SourceKey)

	cmd.PersistentFlags().StringVarP(&distFlag, config.DistKey, "d",
		viper.GetString(config.DistKey), "destination root for compiled sections")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(config.DistKey), config.DistKey)

	cmd.PersistentFlags().BoolVar(&minifyFlag, "minify",
		viper.GetBool(config.MinifyScriptsKey), "minify section scripts before wrapping")
	bindFlagToConfig(cmd.PersistentFlags().Lookup("minify"), config.MinifyScriptsKey)
}

// bindFlagToConfig wires a Cobra flag to a Viper key so config/env values feed the flag.
func bindFlagToConfig(flag *pflag.Flag, key string) {
	if flag == nil {
		cobra.CheckErr(fmt.Errorf("flag for config key %q not found", key))
		return
	}
	cobra.CheckErr(viper.BindPFlag(key, flag))
}

// newLogger builds the logger shared by the subcommands from resolved config.
func newLogger(cfg *config.Config) *slog.Logger {
	if cfg.Log.ToFile {
		return logging.NewWithFile("sectionforge", cfg.Log.Level, logging.FileOptions{
			Filename:   cfg.Log.Filename,
			MaxSizeMB:  cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAgeDays: cfg.Log.MaxAgeDays,
			Compress:   cfg.Log.Compress,
		})
	}
	return logging.New("sectionforge", logging.Options{Level: cfg.Log.Level})
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
