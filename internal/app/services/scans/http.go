package scans

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/PaesslerAG/jsonpath"

	"github.com/pawmate/pawmate/internal/app/domain/scan"
	"github.com/pawmate/pawmate/internal/httputil"
)

// Default JSONPath expressions for inference runtime replies.
const (
	DefaultLabelPath      = "$.label"
	DefaultConfidencePath = "$.confidence"
	DefaultFindingsPath   = "$.findings"
)

// HTTPClassifierConfig points the classifier at an inference runtime.
type HTTPClassifierConfig struct {
	Model          string
	LabelPath      string
	ConfidencePath string
	FindingsPath   string
}

// HTTPClassifier posts images to an inference runtime and extracts the
// verdict with JSONPath.
type HTTPClassifier struct {
	client *httputil.Client
	cfg    HTTPClassifierConfig
}

type inferenceRequest struct {
	Kind        string   `json:"kind"`
	ContentType string   `json:"content_type"`
	Image       string   `json:"image"`
	Labels      []string `json:"labels"`
}

// NewHTTPClassifier builds a classifier with the given client.
func NewHTTPClassifier(client *httputil.Client, cfg HTTPClassifierConfig) *HTTPClassifier {
	if cfg.LabelPath == "" {
		cfg.LabelPath = DefaultLabelPath
	}
	if cfg.ConfidencePath == "" {
		cfg.ConfidencePath = DefaultConfidencePath
	}
	if cfg.FindingsPath == "" {
		cfg.FindingsPath = DefaultFindingsPath
	}
	if cfg.Model == "" {
		cfg.Model = "inference"
	}
	return &HTTPClassifier{client: client, cfg: cfg}
}

func (c *HTTPClassifier) Classify(ctx context.Context, kind scan.Kind, img Image) (Result, error) {
	resp, err := c.client.PostJSON(ctx, "", inferenceRequest{
		Kind:        string(kind),
		ContentType: img.ContentType,
		Image:       base64.StdEncoding.EncodeToString(img.Data),
		Labels:      kind.Labels(),
	})
	if err != nil {
		return Result{}, fmt.Errorf("inference request: %w", err)
	}
	body, err := httputil.ReadBody(resp, 1<<20)
	if err != nil {
		return Result{}, fmt.Errorf("inference response: %w", err)
	}
	return c.extract(body)
}

func (c *HTTPClassifier) extract(body []byte) (Result, error) {
	var doc interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		return Result{}, fmt.Errorf("decode inference response: %w", err)
	}

	rawLabel, err := jsonpath.Get(c.cfg.LabelPath, doc)
	if err != nil {
		return Result{}, fmt.Errorf("label path %s: %w", c.cfg.LabelPath, err)
	}
	label, ok := rawLabel.(string)
	if !ok {
		return Result{}, fmt.Errorf("label path %s yielded %T, want string", c.cfg.LabelPath, rawLabel)
	}
	res := Result{Label: label, Model: c.cfg.Model}

	if raw, err := jsonpath.Get(c.cfg.ConfidencePath, doc); err == nil {
		res.Confidence = toFloat(raw)
	}
	if raw, err := jsonpath.Get(c.cfg.FindingsPath, doc); err == nil {
		if items, ok := raw.([]interface{}); ok {
			for _, item := range items {
				if s, ok := item.(string); ok {
					res.Findings = append(res.Findings, s)
				}
			}
		}
	}
	return res, nil
}

func toFloat(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case string:
		f, _ := strconv.ParseFloat(n, 64)
		return f
	case []interface{}:
		if len(n) == 1 {
			return toFloat(n[0])
		}
	}
	return 0
}
