package export

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/ONSdigital/gdhi-adj/internal/model"
)

// Summary renders a one-screen run summary. Counts use grouped digits so the
// LSOA-scale figures stay readable; years and codes are left plain.
func Summary(report *model.RunReport) string {
	p := message.NewPrinter(language.BritishEnglish)
	var b strings.Builder

	name := report.RunID
	if name == "" {
		name = "(unsaved)"
	}
	status := "succeeded"
	if !report.Succeeded {
		status = p.Sprintf("completed with %d failures", len(report.Failures))
	}
	elapsed := report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond)
	fmt.Fprintf(&b, "Run %s %s in %s (years %d-%d)\n", name, status, elapsed, report.YearStart, report.YearEnd)

	c := report.Counts
	p.Fprintf(&b, "  series: %d  flagged points: %d\n", c.Series, c.FlaggedPoints)
	p.Fprintf(&b, "  imputed: %d interpolated, %d extrapolated\n", c.Interpolated, c.Extrapolated)
	p.Fprintf(&b, "  reconciled: %d apportioned, %d floored, %d rollbacks\n", c.Apportioned, c.Floored, c.Rollbacks)
	if len(report.Scaling) > 0 {
		p.Fprintf(&b, "  scaling factors: %d slices\n", len(report.Scaling))
	}

	for _, f := range report.Failures {
		fmt.Fprintf(&b, "  failure [%s] %s\n", f.Kind, f.Message)
	}
	for _, r := range report.Residuals {
		fmt.Fprintf(&b, "  residual %s %s year %d: %.3f unabsorbed\n", r.Unit, r.Component, r.Year, r.Amount)
	}
	return b.String()
}
