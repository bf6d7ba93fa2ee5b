package analytics

// ComputeInsight summarises a chart: average hours per day for bounded
// periods, total hours for lifetime.
func ComputeInsight(period Period, points []ChartDataPoint, stats UserStats) Insight {
	sum := 0
	for _, p := range points {
		sum += p.Value
	}
	in := Insight{
		Period:        period,
		Label:         "Total Hours",
		Hours:         float64(sum) / 60,
		CurrentStreak: stats.CurrentStreak,
		BestStreak:    stats.BestStreak,
	}
	if days := period.Days(); days > 0 {
		in.Label = "Average per day"
		in.Hours /= float64(days)
	}
	return in
}
