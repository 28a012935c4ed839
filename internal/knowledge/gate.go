package knowledge

import "strings"

// metricMarkers are vocabulary of the health-metrics domain (sleep, step
// and heart data). A conversation living there gains nothing from
// training-knowledge retrieval.
var metricMarkers = []string{
	"sleep", "slept", "bedtime", "rem",
	"steps", "step count", "walked",
	"heart rate", "resting hr", "hrv",
	"spo2", "blood oxygen",
	"readiness", "recovery score",
}

// trainingMarkers are vocabulary of the training domain. Any hit keeps
// retrieval on even when metric vocabulary is present.
var trainingMarkers = []string{
	"workout", "train", "exercise", "lift", "lifting",
	"program", "routine", "set", "rep", "volume",
	"squat", "deadlift", "bench", "press", "row", "pull",
	"hypertrophy", "strength", "cardio", "mobility",
	"muscle", "soreness", "deload", "plan",
}

// ShouldRetrieve decides whether retrieval should run for a message.
// It scans the current message and recent history text for domain markers
// and suppresses retrieval when the conversation is clearly metric-only;
// the builder then receives no call at all and the bundle stays empty.
func ShouldRetrieve(message string, recentHistory []string) bool {
	text := strings.ToLower(message)
	for _, h := range recentHistory {
		text += "\n" + strings.ToLower(h)
	}

	if containsAny(text, trainingMarkers) {
		return true
	}
	if containsAny(text, metricMarkers) {
		return false
	}
	// No markers either way: default to retrieving.
	return true
}

func containsAny(text string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(text, m) {
			return true
		}
	}
	return false
}
