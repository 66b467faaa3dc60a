package core

// LabelSet holds the configured mailbox label names for the actionable
// categories.
type LabelSet struct {
	Acknowledged string
	Rejected     string
	Followup     string
	Jobboard     string
}

// Decide maps a classification onto a mailbox action, gated by the
// confidence threshold. Below the threshold every category is a no-op;
// the record is still written by the caller.
//
// The mapping is the entire business logic of the pipeline and is spelled
// out per category so that adding one is a conscious change.
func Decide(category Category, confidence, threshold float64, labels LabelSet) Action {
	if confidence < threshold {
		return Action{}
	}

	switch category {
	case CategoryAcknowledgement:
		return Action{Label: labels.Acknowledged, Archive: true}
	case CategoryRejection:
		return Action{Label: labels.Rejected, Archive: true}
	case CategoryFollowup:
		return Action{Label: labels.Followup, Archive: false}
	case CategoryJobboard:
		return Action{Label: labels.Jobboard, Archive: true}
	case CategoryUnknown:
		return Action{}
	}

	// Values outside the taxonomy never reach here through ParseResponse,
	// but anything unrecognized must not act.
	return Action{}
}
