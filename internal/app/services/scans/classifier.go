package scans

import (
	"context"
	"math"
	"strings"

	"github.com/pawmate/pawmate/internal/app/domain/scan"
)

// Image is a preprocessed upload handed to a classifier.
type Image struct {
	Data        []byte
	ContentType string
	Width       int
	Height      int
}

// Result is a classifier's verdict before it is stored.
type Result struct {
	Label      string
	Confidence float64
	Findings   []string
	Model      string
}

// Classifier labels a pet image of the given kind.
type Classifier interface {
	Classify(ctx context.Context, kind scan.Kind, img Image) (Result, error)
}

// normalize maps the label into the kind's vocabulary and clamps confidence.
func normalize(kind scan.Kind, r Result) Result {
	r.Label = kind.NormalizeLabel(strings.ToLower(strings.TrimSpace(r.Label)))
	switch {
	case math.IsNaN(r.Confidence) || r.Confidence < 0:
		r.Confidence = 0
	case r.Confidence > 1:
		r.Confidence = 1
	}
	findings := make([]string, 0, len(r.Findings))
	for _, f := range r.Findings {
		if f = strings.TrimSpace(f); f != "" {
			findings = append(findings, f)
		}
	}
	r.Findings = findings
	return r
}

func prompt(kind scan.Kind) string {
	subject := "a pet's stool"
	if kind == scan.KindFur {
		subject = "a pet's fur and skin"
	}
	return "You are a veterinary triage assistant. The image shows " + subject + ". " +
		"Reply with a JSON object only: {\"label\": one of [" + strings.Join(kind.Labels(), ", ") + "], " +
		"\"confidence\": number between 0 and 1, \"findings\": short observations as an array of strings}."
}
