package ravi

// Status is the narrator judgment attached to a match.
type Status string

const (
	Thiqah  Status = "Thiqah"
	Zaeef   Status = "Zaeef"
	Unknown Status = "Unknown"
)

// ParseStatus maps a free-form label (as returned by a language model, for
// instance) onto a Status. Anything unrecognised is Unknown.
func ParseStatus(s string) Status {
	switch normalize(s) {
	case "thiqah", "thiqa", "trustworthy", "reliable":
		return Thiqah
	case "zaeef", "daeef", "da'if", "daif", "weak", "unreliable":
		return Zaeef
	default:
		return Unknown
	}
}

// AnalysisResult is one classified occurrence of "ravi" in a document.
type AnalysisResult struct {
	BookName string `json:"bookName"`
	Status   Status `json:"status"`
	Page     int    `json:"page"`
	Context  string `json:"context"`
}
