package classifier

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nurpe/waste-dispatch/internal/model"
)

const prompt = `
You are a waste classification assistant for a municipal collection service.
Look at the photo and decide whether it shows waste that a collection crew should pick up.

Reply with a single JSON object and nothing else, using exactly this schema:
{
  "containsWaste": <true | false>,
  "wasteCategories": [{"type": "<material>", "estimatedPercentage": <0-100>}],
  "dominantWasteType": "<plastic | paper | cardboard | glass | metal | e-waste | battery | organic | food | garden | hazardous | chemical | medical | oil | construction | textile | mixed>",
  "estimatedVolume": {"value": <number>, "unit": "<kg | liters | cubic_meters>"},
  "possibleSource": "<short text>",
  "environmentalImpact": "<short text>",
  "confidenceLevel": <0.0-1.0>,
  "errorMessage": null
}

Rules:
* When the photo shows no waste set containsWaste to false and leave wasteCategories empty.
* Percentages in wasteCategories add up to 100.
* When the image cannot be analysed at all (blurred, not a photo, explicit content) set errorMessage to a short reason.
`

var ErrEmptyResponse = errors.New("classifier returned no content")

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type content struct {
	Role  string `json:"role"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	ResponseMimeType string  `json:"response_mime_type,omitempty"`
	Temperature      float64 `json:"temperature"`
}

type geminiRequest struct {
	GenerationConfig generationConfig `json:"generationConfig"`
	Contents         []content        `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text,omitempty"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Client classifies waste photos with the Gemini generateContent API.
type Client struct {
	apiKey  string
	model   string
	baseURL string
	http    *http.Client
}

func NewClient(apiKey, model, baseURL string, timeout time.Duration) *Client {
	return &Client{
		apiKey:  apiKey,
		model:   model,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) Classify(ctx context.Context, image []byte, contentType string) (model.Classification, error) {
	reqBody := geminiRequest{
		GenerationConfig: generationConfig{ResponseMimeType: "application/json"},
		Contents: []content{
			{
				Role: "user",
				Parts: []part{
					{Text: prompt},
					{InlineData: &inlineData{
						MimeType: contentType,
						Data:     base64.StdEncoding.EncodeToString(image),
					}},
				},
			},
		},
	}

	text, err := c.generateContent(ctx, reqBody)
	if err != nil {
		return model.Classification{}, err
	}
	return parseClassification(text)
}

func (c *Client) generateContent(ctx context.Context, body geminiRequest) (string, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("API error (status %d): %s", resp.StatusCode, truncate(string(bodyBytes), 512))
	}

	var gr geminiResponse
	if err := json.Unmarshal(bodyBytes, &gr); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if len(gr.Candidates) == 0 {
		return "", ErrEmptyResponse
	}
	for _, p := range gr.Candidates[0].Content.Parts {
		if p.Text != "" {
			return p.Text, nil
		}
	}
	return "", ErrEmptyResponse
}

// parseClassification accepts the model reply with or without a markdown code fence.
func parseClassification(text string) (model.Classification, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var c model.Classification
	if err := json.Unmarshal([]byte(text), &c); err != nil {
		return model.Classification{}, fmt.Errorf("failed to decode classification: %w", err)
	}
	if c.ConfidenceLevel < 0 {
		c.ConfidenceLevel = 0
	}
	if c.ConfidenceLevel > 1 {
		c.ConfidenceLevel = 1
	}
	return c, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
