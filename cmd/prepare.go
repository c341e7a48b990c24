package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ONSdigital/gdhi-adj/internal/ingest"
	"github.com/ONSdigital/gdhi-adj/internal/prepare"
)

var (
	prepareMapper string
	prepareOut    string
)

var prepareCmd = &cobra.Command{
	Use:   "prepare <sub-file>...",
	Short: "Assemble per-component sub-files into one observed table",
	Long: "Appends per-component extracts into a single observed table, " +
		"rebases legacy Scottish group codes to LADs via the mapper, and " +
		"writes the prepared wide table with publication suppression applied.",
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		log := zap.L().With(zap.String("component", "prepare"))

		pts, err := prepare.Append(args)
		if err != nil {
			return err
		}

		if prepare.NeedsMapping(pts) {
			if prepareMapper == "" {
				return eris.New("prepare: inputs carry legacy group codes, --mapper is required")
			}
			m, err := ingest.ReadMapper(prepareMapper)
			if err != nil {
				return err
			}
			if err := prepare.MapGroups(pts, m); err != nil {
				return err
			}
			log.Info("prepare: legacy group codes mapped", zap.Int("mappings", m.Len()))
		}

		if err := prepare.CheckComplete(pts); err != nil {
			return err
		}
		if err := prepare.CheckNoNegatives(pts); err != nil {
			return err
		}

		if err := prepare.WritePrepared(prepareOut, pts); err != nil {
			return err
		}

		fmt.Fprintf(os.Stdout, "Prepared %d points from %d files into %s.\n", len(pts), len(args), prepareOut)
		return nil
	},
}

func init() {
	prepareCmd.Flags().StringVar(&prepareMapper, "mapper", "", "LAU to LAD correspondence CSV")
	prepareCmd.Flags().StringVar(&prepareOut, "out", "observed.csv", "output path for the prepared table")
	rootCmd.AddCommand(prepareCmd)
}
