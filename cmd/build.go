package cmd

import (
	"github.com/spf13/cobra"

	"github.com/sectionforge/sectionforge/internal/builder"
	"github.com/sectionforge/sectionforge/internal/config"
	"github.com/sectionforge/sectionforge/internal/section"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Compile every section once",
	Long: `Compile every section under <source>/sections into <dist>/sections,
overwriting existing outputs. A missing sections directory is not an error;
there is nothing to build.`,
	RunE: func(_ *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		log := newLogger(cfg)

		b := builder.New(cfg.Source, cfg.Dist,
			section.Compiler{MinifyScripts: cfg.MinifyScripts}, log)
		return b.FullBuild()
	},
}

func init() {
	rootCmd.AddCommand(buildCmd)
}
