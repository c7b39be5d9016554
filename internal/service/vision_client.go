package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/csvtree/csvtree-api/internal/engine"
	"github.com/csvtree/csvtree-api/internal/models"
)

// Provider endpoints and models.
const (
	geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"
	geminiModel   = "gemini-3-flash-preview"

	groqBaseURL = "https://api.groq.com/openai/v1/chat/completions"
	groqModel   = "llama-3.2-11b-vision-preview"
)

// VisionClient makes direct vision provider API calls. One call covers one
// record; retry and halt policy live in the batch runner.
type VisionClient struct {
	logger *slog.Logger
	client *http.Client
}

// NewVisionClient creates a vision client with the given per-call timeout.
func NewVisionClient(logger *slog.Logger, timeout time.Duration) *VisionClient {
	if timeout == 0 {
		timeout = 90 * time.Second
	}
	return &VisionClient{
		logger: logger,
		client: &http.Client{Timeout: timeout},
	}
}

// Process sends one thumbnail to the given provider and returns the parsed
// extraction result. The thumbnail is a data URI (data:image/...;base64,...).
// Errors are classified ProviderErrors.
func (c *VisionClient) Process(ctx context.Context, cred engine.Credential, thumbnail string, settings models.AppSettings) (*models.ExtractionResult, error) {
	if cred.APIKey == "" {
		return nil, engine.Classify(fmt.Errorf("no API key for provider %s", cred.Provider), cred.Provider, http.StatusUnauthorized)
	}

	mimeType, imageData, err := splitDataURI(thumbnail)
	if err != nil {
		return nil, &engine.ProviderError{
			Err:         err,
			Provider:    cred.Provider,
			Category:    engine.CategoryParse,
			UserMessage: "The uploaded thumbnail could not be read.",
			RawMessage:  err.Error(),
		}
	}

	prompt := BuildPrompt(settings)

	var apiURL string
	var reqBody any
	switch cred.Provider {
	case engine.ProviderGemini:
		apiURL = fmt.Sprintf("%s/%s:generateContent", geminiBaseURL, geminiModel)
		reqBody = buildGeminiRequest(prompt, mimeType, imageData, settings)
	case engine.ProviderGroq:
		apiURL = groqBaseURL
		reqBody = buildGroqRequest(prompt, thumbnail)
	default:
		return nil, fmt.Errorf("unknown provider %q", cred.Provider)
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	c.logger.Debug("making vision API request",
		"provider", cred.Provider,
		"mode", settings.Mode,
		"prompt_length", len(prompt),
		"image_bytes", len(imageData),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	switch cred.Provider {
	case engine.ProviderGemini:
		req.Header.Set("x-goog-api-key", cred.APIKey)
	case engine.ProviderGroq:
		req.Header.Set("Authorization", "Bearer "+cred.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Error("vision API request failed", "provider", cred.Provider, "error", err)
		return nil, engine.Classify(fmt.Errorf("request failed: %w", err), cred.Provider, 0)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, engine.Classify(fmt.Errorf("failed to read response: %w", err), cred.Provider, resp.StatusCode)
	}

	c.logger.Debug("vision API response received",
		"provider", cred.Provider,
		"status_code", resp.StatusCode,
		"response_length", len(body),
	)

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("vision API error",
			"provider", cred.Provider,
			"status_code", resp.StatusCode,
			"response", string(body),
		)
		return nil, engine.Classify(fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body)), cred.Provider, resp.StatusCode)
	}

	var content string
	switch cred.Provider {
	case engine.ProviderGemini:
		content, err = parseGeminiResponse(body)
	case engine.ProviderGroq:
		content, err = parseGroqResponse(body)
	}
	if err != nil {
		return nil, engine.Classify(err, cred.Provider, resp.StatusCode)
	}

	var result models.ExtractionResult
	if err := engine.ExtractJSON(content, &result); err != nil {
		c.logger.Warn("unparseable vision response",
			"provider", cred.Provider,
			"content", truncateForLog(content, 500),
		)
		return nil, engine.Classify(err, cred.Provider, resp.StatusCode)
	}

	return &result, nil
}

// Gemini request/response shapes (generateContent API).

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type geminiGenerationConfig struct {
	Temperature      float64         `json:"temperature"`
	ResponseMimeType string          `json:"responseMimeType,omitempty"`
	ResponseSchema   json.RawMessage `json:"responseSchema,omitempty"`
}

func buildGeminiRequest(prompt, mimeType, imageData string, settings models.AppSettings) geminiRequest {
	return geminiRequest{
		Contents: []geminiContent{{
			Parts: []geminiPart{
				{InlineData: &geminiInlineData{MimeType: mimeType, Data: imageData}},
				{Text: prompt},
			},
		}},
		GenerationConfig: geminiGenerationConfig{
			Temperature:      0.15,
			ResponseMimeType: "application/json",
			ResponseSchema:   responseSchemaFor(settings.Mode),
		},
	}
}

// responseSchemaFor returns the structured-output schema for the mode.
// Constraining the shape server-side cuts down on malformed replies.
func responseSchemaFor(mode models.GenerationMode) json.RawMessage {
	if mode == models.ModeImageToPrompt {
		return json.RawMessage(`{
			"type": "OBJECT",
			"properties": {"prompt": {"type": "STRING"}},
			"required": ["prompt"]
		}`)
	}
	return json.RawMessage(`{
		"type": "OBJECT",
		"properties": {
			"title": {"type": "STRING"},
			"keywords": {"type": "ARRAY", "items": {"type": "STRING"}},
			"categories": {"type": "ARRAY", "items": {"type": "STRING"}},
			"description": {"type": "STRING"}
		},
		"required": ["title", "keywords", "categories", "description"]
	}`)
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func parseGeminiResponse(body []byte) (string, error) {
	var resp geminiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("%w: %v", engine.ErrMalformedResponse, err)
	}
	if resp.Error != nil {
		return "", fmt.Errorf("gemini error %d (%s): %s", resp.Error.Code, resp.Error.Status, resp.Error.Message)
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("%w: no candidates in response", engine.ErrMalformedResponse)
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return sb.String(), nil
}

// Groq request/response shapes (OpenAI-compatible chat completions API).

type groqRequest struct {
	Model          string              `json:"model"`
	Messages       []groqMessage       `json:"messages"`
	Temperature    float64             `json:"temperature"`
	ResponseFormat *groqResponseFormat `json:"response_format,omitempty"`
}

type groqMessage struct {
	Role    string           `json:"role"`
	Content []groqContentPart `json:"content"`
}

type groqContentPart struct {
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
	ImageURL *groqImageURL `json:"image_url,omitempty"`
}

type groqImageURL struct {
	URL string `json:"url"`
}

type groqResponseFormat struct {
	Type string `json:"type"`
}

func buildGroqRequest(prompt, thumbnailDataURI string) groqRequest {
	return groqRequest{
		Model: groqModel,
		Messages: []groqMessage{{
			Role: "user",
			Content: []groqContentPart{
				{Type: "text", Text: prompt},
				{Type: "image_url", ImageURL: &groqImageURL{URL: thumbnailDataURI}},
			},
		}},
		Temperature:    0.1,
		ResponseFormat: &groqResponseFormat{Type: "json_object"},
	}
}

type groqResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func parseGroqResponse(body []byte) (string, error) {
	var resp groqResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("%w: %v", engine.ErrMalformedResponse, err)
	}
	if resp.Error != nil {
		return "", fmt.Errorf("groq error (%s): %s", resp.Error.Type, resp.Error.Message)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices in response", engine.ErrMalformedResponse)
	}
	return resp.Choices[0].Message.Content, nil
}

// splitDataURI splits "data:image/jpeg;base64,AAAA" into mime type and payload.
func splitDataURI(uri string) (mimeType, data string, err error) {
	if !strings.HasPrefix(uri, "data:") {
		return "", "", fmt.Errorf("thumbnail is not a data URI")
	}
	rest := strings.TrimPrefix(uri, "data:")
	comma := strings.IndexByte(rest, ',')
	if comma == -1 {
		return "", "", fmt.Errorf("malformed data URI")
	}
	meta := rest[:comma]
	data = rest[comma+1:]
	mimeType = strings.TrimSuffix(meta, ";base64")
	if mimeType == "" || data == "" {
		return "", "", fmt.Errorf("malformed data URI")
	}
	return mimeType, data, nil
}

func truncateForLog(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
