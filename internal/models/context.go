package models

// Context labels assigned by the context classifier.
const (
	ContextQuestion              = "question"
	ContextComplaint             = "complaint"
	ContextRecommendationRequest = "recommendation request"
	ContextPraise                = "praise"
	ContextOther                 = "other"

	// ContextUnknown is the sentinel used when classification fails.
	ContextUnknown = "unknown"
)

// Categories returns the ordered label set offered to the classifier.
func Categories() []string {
	return []string{
		ContextQuestion,
		ContextComplaint,
		ContextRecommendationRequest,
		ContextPraise,
		ContextOther,
	}
}

// IsCategory reports whether label belongs to labels.
func IsCategory(label string, labels []string) bool {
	for _, l := range labels {
		if l == label {
			return true
		}
	}
	return false
}
