package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/ONSdigital/gdhi-adj/internal/flagging"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Run the pre-flight checks without adjusting anything",
	Long: "Reads the configured inputs, applies the flagging criteria, and " +
		"reports every structural problem an adjust run would hit: series " +
		"with no unflagged point, groups too small or fully flagged, and " +
		"groups with no control totals.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("validate"); err != nil {
			return err
		}

		in, err := loadInputs()
		if err != nil {
			return err
		}

		yearMin, yearMax := in.Series.YearRange()
		compiled, err := in.Options.Criteria.Compile(yearMin, yearMax)
		if err != nil {
			return err
		}

		var problems []string
		for _, s := range in.Series.All() {
			if _, err := flagging.FlagSeries(s, compiled); err != nil {
				problems = append(problems, err.Error())
			}
		}
		for _, err := range flagging.Preflight(in.Series, compiled, cfg.Adjustment.MinGroupSize) {
			problems = append(problems, err.Error())
		}
		for _, comp := range in.Series.Components() {
			for _, group := range in.Series.GroupsFor(comp) {
				if !in.Controls.HasAny(group, comp) {
					problems = append(problems, fmt.Sprintf("no control totals for group %s component %s", group, comp))
				}
			}
		}

		if len(problems) == 0 {
			fmt.Fprintf(os.Stdout, "Inputs valid: %d series over years %d-%d.\n", in.Series.Len(), yearMin, yearMax)
			return nil
		}

		for _, p := range problems {
			fmt.Fprintf(os.Stdout, "problem: %s\n", p)
		}
		return eris.Errorf("validate: %d problems found", len(problems))
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
