package stages_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"nutripilot"
	"nutripilot/stages"

	should "github.com/stretchr/testify/assert"
	must "github.com/stretchr/testify/require"
)

type mockHTTPClient struct {
	status   int
	response string
	err      error
	request  *http.Request
}

func (m *mockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	m.request = req
	if m.err != nil {
		return nil, m.err
	}
	status := m.status
	if status == 0 {
		status = http.StatusOK
	}
	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Body:       io.NopCloser(bytes.NewBufferString(m.response)),
	}, nil
}

func TestNewOllamaVisionDetector(t *testing.T) {
	_, err := stages.NewOllamaVisionDetector(stages.OllamaVisionOpts{})
	must.Error(t, err)
	should.Contains(t, err.Error(), "base endpoint must not be empty")

	detector, err := stages.NewOllamaVisionDetector(stages.OllamaVisionOpts{
		BaseEndpoint: "http://localhost:11434",
	})
	must.NoError(t, err)
	should.NotNil(t, detector)
}

func TestOllamaAnalyze(t *testing.T) {
	client := &mockHTTPClient{
		response: `{"message":{"role":"assistant","content":"{\"foods\":[{\"name\":\"pancakes\",\"portion_grams\":120,\"portion_description\":\"2 pancakes\",\"confidence\":0.9}],\"overall_confidence\":0.88}"}}`,
	}
	detector, err := stages.NewOllamaVisionDetector(stages.OllamaVisionOpts{
		BaseEndpoint: "http://localhost:11434",
		ModelID:      "llava",
		HTTPClient:   client,
	})
	must.NoError(t, err)

	report, err := detector.Analyze(context.Background(), visionInput())
	must.NoError(t, err)

	must.Len(t, report.Foods, 1)
	should.Equal(t, "pancakes", report.Foods[0].Name)
	should.Equal(t, 0.88, report.OverallConfidence)
	should.Equal(t, "llava", report.ModelUsed)

	must.NotNil(t, client.request)
	should.Equal(t, "http://localhost:11434/api/chat", client.request.URL.String())

	var sent struct {
		Model    string `json:"model"`
		Messages []struct {
			Role   string   `json:"role"`
			Images []string `json:"images"`
		} `json:"messages"`
		Stream bool `json:"stream"`
	}
	body, err := io.ReadAll(client.request.Body)
	must.NoError(t, err)
	must.NoError(t, json.Unmarshal(body, &sent))
	should.Equal(t, "llava", sent.Model)
	should.False(t, sent.Stream)
	must.Len(t, sent.Messages, 2)
	should.Equal(t, "system", sent.Messages[0].Role)
	should.Len(t, sent.Messages[1].Images, 1)
}

func TestOllamaAnalyzeServerError(t *testing.T) {
	client := &mockHTTPClient{status: http.StatusInternalServerError, response: "model not loaded"}
	detector, err := stages.NewOllamaVisionDetector(stages.OllamaVisionOpts{
		BaseEndpoint: "http://localhost:11434",
		HTTPClient:   client,
	})
	must.NoError(t, err)

	_, err = detector.Analyze(context.Background(), visionInput())
	must.Error(t, err)
	should.Contains(t, err.Error(), "model not loaded")
}

func TestOllamaAnalyzeEmptyImage(t *testing.T) {
	detector, err := stages.NewOllamaVisionDetector(stages.OllamaVisionOpts{
		BaseEndpoint: "http://localhost:11434",
		HTTPClient:   &mockHTTPClient{},
	})
	must.NoError(t, err)

	_, err = detector.Analyze(context.Background(), nutripilot.VisionInput{})
	must.Error(t, err)
}
