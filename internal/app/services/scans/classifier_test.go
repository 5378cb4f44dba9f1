package scans

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pawmate/pawmate/internal/app/domain/scan"
	"github.com/pawmate/pawmate/internal/httputil"
)

func TestParseVerdict(t *testing.T) {
	res, err := parseVerdict("```json\n{\"label\":\"hot_spot\",\"confidence\":0.82,\"findings\":[\"red patch\",\"hair loss\"]}\n```")
	require.NoError(t, err)
	assert.Equal(t, "hot_spot", res.Label)
	assert.InDelta(t, 0.82, res.Confidence, 1e-9)
	assert.Equal(t, []string{"red patch", "hair loss"}, res.Findings)

	_, err = parseVerdict("I think it looks fine")
	assert.Error(t, err)
	_, err = parseVerdict(`{"confidence": 0.5}`)
	assert.ErrorContains(t, err, "no label")
}

func TestOpenAIClassifier(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o-mini", req["model"])

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": time.Now().Unix(),
			"model":   "gpt-4o-mini-2024-07-18",
			"choices": []map[string]interface{}{{
				"index":         0,
				"finish_reason": "stop",
				"message": map[string]interface{}{
					"role":    "assistant",
					"content": `{"label":"normal","confidence":0.91,"findings":["firm","brown"]}`,
				},
			}},
		})
	}))
	defer server.Close()

	classifier := NewOpenAIClassifier("test-key", "", server.URL+"/v1")
	res, err := classifier.Classify(context.Background(), scan.KindStool, Image{Data: []byte("png"), ContentType: "image/png"})
	require.NoError(t, err)
	assert.Equal(t, "normal", res.Label)
	assert.InDelta(t, 0.91, res.Confidence, 1e-9)
	assert.Equal(t, []string{"firm", "brown"}, res.Findings)
	assert.Equal(t, "gpt-4o-mini-2024-07-18", res.Model)
}

func TestHTTPClassifierCustomPaths(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req inferenceRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "fur", req.Kind)
		assert.Contains(t, req.Labels, "matted")
		assert.NotEmpty(t, req.Image)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"result":{"predictions":[{"class":"matted","score":"0.77"}],"notes":["tangles behind ears"]}}`))
	}))
	defer server.Close()

	classifier := NewHTTPClassifier(httputil.NewClient(httputil.ClientConfig{BaseURL: server.URL}), HTTPClassifierConfig{
		Model:          "fur-net",
		LabelPath:      "$.result.predictions[0].class",
		ConfidencePath: "$.result.predictions[0].score",
		FindingsPath:   "$.result.notes",
	})
	res, err := classifier.Classify(context.Background(), scan.KindFur, Image{Data: []byte("png"), ContentType: "image/png"})
	require.NoError(t, err)
	assert.Equal(t, "matted", res.Label)
	assert.InDelta(t, 0.77, res.Confidence, 1e-9)
	assert.Equal(t, []string{"tangles behind ears"}, res.Findings)
	assert.Equal(t, "fur-net", res.Model)
}

func TestHTTPClassifierRejectsBadReply(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"prediction": 3}`))
	}))
	defer server.Close()

	classifier := NewHTTPClassifier(httputil.NewClient(httputil.ClientConfig{BaseURL: server.URL}), HTTPClassifierConfig{})
	_, err := classifier.Classify(context.Background(), scan.KindStool, Image{Data: []byte("x"), ContentType: "image/png"})
	assert.Error(t, err)
}

func TestNormalize(t *testing.T) {
	res := normalize(scan.KindFur, Result{Label: "HEALTHY", Confidence: -0.2})
	assert.Equal(t, "healthy", res.Label)
	assert.Zero(t, res.Confidence)
	assert.NotNil(t, res.Findings)
}
