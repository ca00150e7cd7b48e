package firestore

import (
	"time"

	"github.com/runcoach/analysis/pkg/domain/trainingload"
)

func getFloat(m map[string]interface{}, key string) float64 {
	if v, ok := m[key]; ok {
		if f, ok := v.(float64); ok {
			return f
		}
	}
	return 0
}

func getTime(m map[string]interface{}, key string) time.Time {
	if v, ok := m[key]; ok {
		if t, ok := v.(time.Time); ok {
			return t
		}
	}
	return time.Time{}
}

// --- LoadState Converters ---

func LoadStateToFirestore(s *trainingload.State) map[string]interface{} {
	return map[string]interface{}{
		"atl":         s.ATL,
		"ctl":         s.CTL,
		"last_update": s.LastUpdate,
	}
}

func FirestoreToLoadState(m map[string]interface{}) *trainingload.State {
	return &trainingload.State{
		ATL:        getFloat(m, "atl"),
		CTL:        getFloat(m, "ctl"),
		LastUpdate: getTime(m, "last_update"),
	}
}
