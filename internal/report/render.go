package report

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"tracklog/internal/store"
	"tracklog/internal/units"
)

// RenderFile formats a per-activity report as plain text.
func RenderFile(r *FileReport) string {
	var b strings.Builder
	s := r.Summary

	fmt.Fprintf(&b, "%s\n", s.Filename)
	fmt.Fprintf(&b, "  %s  %s\n", s.Begin.Format("2006-01-02 15:04"), s.Sport)
	fmt.Fprintf(&b, "  distance: %.2f mi   duration: %s   calories: %s\n",
		units.MetersToMiles(s.TotalDistance),
		units.FormatHMS(s.TotalDuration),
		humanize.Comma(int64(s.TotalCalories)))
	if hr := s.AvgHR(); hr > 0 {
		fmt.Fprintf(&b, "  avg hr: %.0f bpm\n", hr)
	}

	if len(r.Splits) > 0 {
		b.WriteString("\nsplits:\n")
		tw := tabwriter.NewWriter(&b, 2, 2, 2, ' ', 0)
		fmt.Fprintln(tw, "  mile\ttime\tpace\thr")
		for _, sp := range r.Splits {
			hr := "-"
			if sp.AvgHR > 0 {
				hr = fmt.Sprintf("%.0f", sp.AvgHR)
			}
			fmt.Fprintf(tw, "  %d\t%s\t%s/mi\t%s\n",
				sp.Index, units.FormatHMS(sp.Duration), units.FormatHMS(sp.Pace*60), hr)
		}
		tw.Flush()
	}

	if len(r.Zones) > 0 {
		b.WriteString("\nheart rate zones:\n")
		tw := tabwriter.NewWriter(&b, 2, 2, 2, ' ', 0)
		for _, z := range r.Zones {
			band := fmt.Sprintf("%.0f+", z.LowBPM)
			if z.HighBPM > 0 {
				band = fmt.Sprintf("%.0f-%.0f", z.LowBPM, z.HighBPM)
			}
			fmt.Fprintf(tw, "  z%d\t%s bpm\t%s\t%.1f%%\n",
				z.Index, band, units.FormatHMS(z.Seconds), z.Pct)
		}
		tw.Flush()
	}
	return b.String()
}

// RenderTotals formats grouped aggregate rows as a plain text table.
func RenderTotals(groupBy string, rows []store.TotalsRow) string {
	var b strings.Builder
	tw := tabwriter.NewWriter(&b, 2, 2, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\tfiles\tmiles\ttime\tcalories\tavg hr\n", groupBy)
	var files int
	var miles, dur float64
	var cals int64
	for _, r := range rows {
		hr := "-"
		if v := r.AvgHR(); v > 0 {
			hr = fmt.Sprintf("%.0f", v)
		}
		fmt.Fprintf(tw, "%s\t%d\t%.1f\t%s\t%s\t%s\n",
			r.Group, r.Count,
			units.MetersToMiles(r.TotalDistance),
			units.FormatHMS(r.TotalDuration),
			humanize.Comma(int64(r.TotalCalories)), hr)
		files += r.Count
		miles += units.MetersToMiles(r.TotalDistance)
		dur += r.TotalDuration
		cals += int64(r.TotalCalories)
	}
	fmt.Fprintf(tw, "total\t%d\t%.1f\t%s\t%s\t\n",
		files, miles, units.FormatHMS(dur), humanize.Comma(cals))
	tw.Flush()
	return b.String()
}

// RenderRaces formats race results, slowest distance first then by date.
func RenderRaces(rows []store.RaceResult) string {
	var b strings.Builder
	tw := tabwriter.NewWriter(&b, 2, 2, 2, ' ', 0)
	fmt.Fprintln(tw, "date\tname\tdistance\ttime\tpace")
	for _, r := range rows {
		date, name := "-", "-"
		if r.RaceDate != nil {
			date = r.RaceDate.Format("2006-01-02")
		}
		if r.RaceName != nil {
			name = *r.RaceName
		}
		pace := ""
		if r.RaceDistance > 0 {
			perMile := r.RaceTime / (float64(r.RaceDistance) / units.MetersPerMile)
			pace = units.FormatHMS(perMile) + "/mi"
		}
		fmt.Fprintf(tw, "%s\t%s\t%.1f mi\t%s\t%s\n",
			date, name,
			units.MetersToMiles(float64(r.RaceDistance)),
			units.FormatHMS(r.RaceTime), pace)
	}
	tw.Flush()
	return b.String()
}

// RenderScale formats body-composition readings ordered by time.
func RenderScale(rows []store.ScaleMeasurement) string {
	var b strings.Builder
	tw := tabwriter.NewWriter(&b, 2, 2, 2, ' ', 0)
	fmt.Fprintln(tw, "date\tlbs\tfat%\twater%\tmuscle%\tbone%")
	for _, m := range rows {
		fmt.Fprintf(tw, "%s\t%.1f\t%.1f\t%.1f\t%.1f\t%.1f\n",
			m.Datetime.Format("2006-01-02 15:04"),
			m.Mass, m.FatPct, m.WaterPct, m.MusclePct, m.BonePct)
	}
	tw.Flush()
	return b.String()
}
