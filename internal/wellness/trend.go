package wellness

// Direction classifies how a score series is moving.
type Direction string

const (
	Improving Direction = "improving"
	Declining Direction = "declining"
	Stable    Direction = "stable"
)

// TrendResult is the outcome of AnalyzeTrend.
type TrendResult struct {
	Direction     Direction `json:"direction"`
	ChangePercent float64   `json:"change_percent"`
}

// AnalyzeTrend compares the mean of the recent half of series with the mean
// of the older half. series must be ordered most-recent-first; for odd lengths
// the middle element belongs to the recent half.
//
// Any non-zero percent change sets the direction. There is no dead band.
func AnalyzeTrend(series []int) TrendResult {
	n := len(series)
	if n < 2 {
		return TrendResult{Direction: Stable}
	}

	split := (n + 1) / 2
	recent := mean(series[:split])
	older := mean(series[split:])
	if older == 0 {
		return TrendResult{Direction: Stable}
	}

	change := (recent - older) / older * 100
	result := TrendResult{Direction: Stable, ChangePercent: change}
	switch {
	case change > 0:
		result.Direction = Improving
	case change < 0:
		result.Direction = Declining
	}
	return result
}

// MoodTrend is AnalyzeTrend over the scores of records.
func MoodTrend(records []MoodRecord) TrendResult {
	return AnalyzeTrend(MoodScores(records))
}

// AverageMood returns the mean score of records, or 0 when there are none.
func AverageMood(records []MoodRecord) float64 {
	if len(records) == 0 {
		return 0
	}
	return mean(MoodScores(records))
}

func mean(values []int) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0
	for _, v := range values {
		sum += v
	}
	return float64(sum) / float64(len(values))
}
