package scan

import "time"

// Kind selects what an image shows and which labels apply.
type Kind string

const (
	KindStool Kind = "stool"
	KindFur   Kind = "fur"
)

// Status is the outcome of a scan.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// LabelUnknown is assigned when a classifier answers outside the vocabulary.
const LabelUnknown = "unknown"

var labels = map[Kind][]string{
	KindStool: {"normal", "soft", "diarrhea", "hard", "bloody", "mucus", LabelUnknown},
	KindFur:   {"healthy", "dry", "matted", "shedding", "hot_spot", "parasites", LabelUnknown},
}

// ParseKind validates a kind string.
func ParseKind(s string) (Kind, bool) {
	k := Kind(s)
	_, ok := labels[k]
	return k, ok
}

// Labels returns the vocabulary of k.
func (k Kind) Labels() []string {
	return append([]string(nil), labels[k]...)
}

// NormalizeLabel maps label into the vocabulary of k.
func (k Kind) NormalizeLabel(label string) string {
	for _, known := range labels[k] {
		if known == label {
			return label
		}
	}
	return LabelUnknown
}

// Scan is a stored classification of a pet image.
type Scan struct {
	ID         string    `json:"id"`
	PetID      string    `json:"pet_id"`
	UserID     string    `json:"user_id"`
	Kind       Kind      `json:"kind"`
	ImageURL   string    `json:"image_url"`
	Label      string    `json:"label,omitempty"`
	Confidence float64   `json:"confidence"`
	Findings   []string  `json:"findings"`
	Model      string    `json:"model,omitempty"`
	Status     Status    `json:"status"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
