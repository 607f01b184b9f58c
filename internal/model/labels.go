package model

// Labels the triage bot reads or writes.
const (
	LabelNeedsReproduction  = "needs reproduction"
	LabelPossibleRegression = "possible regression"
	LabelPendingTriage      = "pending triage"
	LabelSpam               = "spam"
	LabelDuplicate          = "duplicate"

	// DefaultRuntimeSubsystemLabel is used when no runtime label is configured.
	DefaultRuntimeSubsystemLabel = "nitro"
)
