package pubsub

// Topic and event identifiers for the analysis pipeline.
const (
	TopicActivityAnalyzed = "activity-analyzed"

	EventTypeActivityAnalyzed = "com.runcoach.activity.analyzed"
	EventSourceAnalysis       = "//runcoach/analysis"
)
