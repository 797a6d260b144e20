// Package wellness derives display signals (mood scores, streaks, trends and
// garden growth) from raw mood, journal and activity records.
//
// Every function in this package is pure: inputs are read, never mutated, and
// nothing is cached between calls. Callers supply "now" explicitly so results
// depend only on their arguments.
package wellness

import (
	"encoding/json"
	"time"
)

// MoodLabel is one of the ten self-reported mood states, or MoodUnknown.
type MoodLabel int

const (
	MoodUnknown MoodLabel = iota
	MoodExcellent
	MoodHappy
	MoodGood
	MoodCalm
	MoodNeutral
	MoodTired
	MoodAnxious
	MoodLow
	MoodSad
	MoodPoor
)

// NeutralScore is returned for any label outside the known set.
const NeutralScore = 6

var moodNames = map[MoodLabel]string{
	MoodExcellent: "excellent",
	MoodHappy:     "happy",
	MoodGood:      "good",
	MoodCalm:      "calm",
	MoodNeutral:   "neutral",
	MoodTired:     "tired",
	MoodAnxious:   "anxious",
	MoodLow:       "low",
	MoodSad:       "sad",
	MoodPoor:      "poor",
}

var moodScores = map[MoodLabel]int{
	MoodExcellent: 10,
	MoodHappy:     9,
	MoodGood:      8,
	MoodCalm:      7,
	MoodNeutral:   6,
	MoodTired:     5,
	MoodAnxious:   4,
	MoodLow:       3,
	MoodSad:       2,
	MoodPoor:      1,
}

var moodsByName = func() map[string]MoodLabel {
	m := make(map[string]MoodLabel, len(moodNames))
	for label, name := range moodNames {
		m[name] = label
	}
	return m
}()

// ParseMood maps a stored label to a MoodLabel. Matching is exact and
// case-sensitive; anything else yields MoodUnknown.
func ParseMood(s string) MoodLabel {
	if label, ok := moodsByName[s]; ok {
		return label
	}
	return MoodUnknown
}

// MoodLabels lists the known labels from best to worst.
func MoodLabels() []MoodLabel {
	return []MoodLabel{
		MoodExcellent, MoodHappy, MoodGood, MoodCalm, MoodNeutral,
		MoodTired, MoodAnxious, MoodLow, MoodSad, MoodPoor,
	}
}

// Known reports whether m is one of the ten defined labels.
func (m MoodLabel) Known() bool {
	_, ok := moodNames[m]
	return ok
}

// Score returns the 1-10 intensity of m. Unknown labels score NeutralScore.
func (m MoodLabel) Score() int {
	if score, ok := moodScores[m]; ok {
		return score
	}
	return NeutralScore
}

func (m MoodLabel) String() string {
	if name, ok := moodNames[m]; ok {
		return name
	}
	return "unknown"
}

// MarshalJSON encodes the label as its name.
func (m MoodLabel) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON never fails on an unrecognized name; it decodes to MoodUnknown.
func (m *MoodLabel) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*m = ParseMood(s)
	return nil
}

// ScoreMood scores a raw label string.
func ScoreMood(s string) int {
	return ParseMood(s).Score()
}

// MoodRecord is a single mood check-in.
type MoodRecord struct {
	Mood      MoodLabel `json:"mood"`
	CreatedAt time.Time `json:"created_at"`
}

// Date implements Dated.
func (r MoodRecord) Date() time.Time { return r.CreatedAt }

// MoodScores returns the scores of records ordered most-recent-first, ready
// for AnalyzeTrend. The input slice is not reordered.
func MoodScores(records []MoodRecord) []int {
	sorted := sortedDescending(records)
	scores := make([]int, len(sorted))
	for i, r := range sorted {
		scores[i] = r.Mood.Score()
	}
	return scores
}
