package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type restRequest struct {
	SystemInstruction *restContent         `json:"systemInstruction,omitempty"`
	Contents          []restContent        `json:"contents"`
	GenerationConfig  restGenerationConfig `json:"generationConfig"`
}

type restContent struct {
	Role  string     `json:"role,omitempty"`
	Parts []restPart `json:"parts"`
}

type restPart struct {
	Text string `json:"text"`
}

type restGenerationConfig struct {
	ResponseMIMEType string  `json:"responseMimeType"`
	Temperature      float32 `json:"temperature"`
}

type restResponse struct {
	Candidates []restCandidate `json:"candidates"`
	Error      *restAPIError   `json:"error,omitempty"`
}

type restCandidate struct {
	Content restContent `json:"content"`
}

type restAPIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// RESTClient calls the Gemini generateContent endpoint over plain HTTP.
type RESTClient struct {
	APIKey     string
	APIURL     string
	ModelName  string
	HTTPClient *http.Client
}

func NewRESTClient(apiKey, apiURL, model string) *RESTClient {
	return &RESTClient{
		APIKey:    apiKey,
		APIURL:    apiURL,
		ModelName: model,
		HTTPClient: &http.Client{
			Timeout: 90 * time.Second,
		},
	}
}

func (g *RESTClient) Name() string  { return "gemini-rest" }
func (g *RESTClient) Model() string { return g.ModelName }
func (g *RESTClient) Close() error  { return nil }

func (g *RESTClient) GenerateJSON(ctx context.Context, instruction, prompt string) (string, error) {
	request := restRequest{
		SystemInstruction: &restContent{Parts: []restPart{{Text: instruction}}},
		Contents: []restContent{
			{Role: "user", Parts: []restPart{{Text: prompt}}},
		},
		GenerationConfig: restGenerationConfig{
			ResponseMIMEType: "application/json",
			Temperature:      0.1,
		},
	}

	resp, err := g.makeRequest(ctx, request)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		b.WriteString(part.Text)
	}
	return b.String(), nil
}

func (g *RESTClient) makeRequest(ctx context.Context, request restRequest) (*restResponse, error) {
	jsonData, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", strings.TrimRight(g.APIURL, "/"), g.ModelName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.APIKey)

	resp, err := g.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var geminiResp restResponse
	decodeErr := json.Unmarshal(body, &geminiResp)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		httpErr := &HTTPError{StatusCode: resp.StatusCode}
		if decodeErr == nil && geminiResp.Error != nil {
			httpErr.Message = geminiResp.Error.Message
		}
		return nil, httpErr
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", decodeErr)
	}
	if geminiResp.Error != nil {
		return nil, &HTTPError{StatusCode: geminiResp.Error.Code, Message: geminiResp.Error.Message}
	}
	if len(geminiResp.Candidates) == 0 {
		return nil, errors.New("no candidates in response")
	}
	return &geminiResp, nil
}
