// Package insight turns journal text and derived wellness signals into short
// user-facing sentences. Classification is plain keyword matching.
package insight

import (
	"sort"
	"strings"
	"unicode"

	"github.com/thermabackend/internal/wellness"
)

// Category is a theme detected in free text.
type Category string

const (
	Anxiety   Category = "anxiety"
	Stress    Category = "stress"
	Sadness   Category = "sadness"
	Anger     Category = "anger"
	Fatigue   Category = "fatigue"
	Gratitude Category = "gratitude"
	Joy       Category = "joy"
)

// keywords are matched as word prefixes, so "worr" covers worried/worrying.
var keywords = map[Category][]string{
	Anxiety:   {"anxi", "worr", "nervous", "panic", "fear", "scared", "uneasy"},
	Stress:    {"stress", "overwhelm", "pressure", "deadline", "busy", "burnout"},
	Sadness:   {"sad", "lonely", "cry", "cried", "down", "hopeless", "grief", "miss"},
	Anger:     {"angry", "anger", "frustrat", "annoy", "irritat", "furious"},
	Fatigue:   {"tired", "exhaust", "sleep", "insomnia", "drained", "fatigue"},
	Gratitude: {"grateful", "thank", "appreciat", "blessed"},
	Joy:       {"happy", "excit", "joy", "proud", "great", "love", "calm", "peace"},
}

// order breaks ties between equally frequent categories; concerns first.
var order = []Category{Anxiety, Stress, Sadness, Anger, Fatigue, Gratitude, Joy}

// Match is one category with the number of words that hit it.
type Match struct {
	Category Category `json:"category"`
	Hits     int      `json:"hits"`
}

// Classify returns the categories found in text, most frequent first.
func Classify(text string) []Match {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	})

	hits := make(map[Category]int)
	for _, w := range words {
		for _, c := range order {
			if matchesAny(w, keywords[c]) {
				hits[c]++
			}
		}
	}

	matches := make([]Match, 0, len(hits))
	for _, c := range order {
		if n := hits[c]; n > 0 {
			matches = append(matches, Match{Category: c, Hits: n})
		}
	}
	// stable keeps the concern-first order for ties
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Hits > matches[j].Hits })
	return matches
}

func matchesAny(word string, stems []string) bool {
	for _, s := range stems {
		if strings.HasPrefix(word, s) {
			return true
		}
	}
	return false
}

// Dominant returns the top category of text, or "" if nothing matched.
func Dominant(text string) Category {
	matches := Classify(text)
	if len(matches) == 0 {
		return ""
	}
	return matches[0].Category
}

var categoryMoods = map[Category]wellness.MoodLabel{
	Anxiety:   wellness.MoodAnxious,
	Stress:    wellness.MoodAnxious,
	Sadness:   wellness.MoodSad,
	Anger:     wellness.MoodLow,
	Fatigue:   wellness.MoodTired,
	Gratitude: wellness.MoodGood,
	Joy:       wellness.MoodHappy,
}

// SuggestMood guesses a mood label from free text. It returns MoodUnknown
// when no keyword matched.
func SuggestMood(text string) wellness.MoodLabel {
	if label, ok := categoryMoods[Dominant(text)]; ok {
		return label
	}
	return wellness.MoodUnknown
}
