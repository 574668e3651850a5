// Package llm proxies text generation to the Gemini REST API.
package llm

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/provafacil/ProvaFacilApi/utils"
)

// ErrRateLimited maps upstream quota errors so handlers can answer 429 with
// a retry-later message.
var ErrRateLimited = errors.New("generation service is rate limited, try again later")

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

func LoadConfig() *Config {
	return &Config{
		APIKey:  utils.GetEnvOrDefault("GOOGLE_API_KEY", ""),
		BaseURL: utils.GetEnvOrDefault("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"),
		Model:   utils.GetEnvOrDefault("GEMINI_MODEL", "gemini-1.5-flash"),
	}
}

type Client struct {
	config     *Config
	httpClient *http.Client
}

func NewClient(config *Config) *Client {
	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: 90 * time.Second,
		},
	}
}

// Request/response shapes for the generateContent endpoint. Only the fields
// we read are modeled.
type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature      float64 `json:"temperature"`
	ResponseMimeType string  `json:"responseMimeType"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Generate sends a prompt and returns the candidate text blob, which is
// expected to be a JSON document per our prompt templates.
func (c *Client) Generate(prompt string, temperature float64) (string, error) {
	if c.config.APIKey == "" {
		return "", fmt.Errorf("GOOGLE_API_KEY is not configured")
	}

	utils.LogLLM("Calling generation endpoint (%d char prompt)", len(prompt))
	start := time.Now()

	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{
			Temperature:      temperature,
			ResponseMimeType: "application/json",
		},
	})
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		c.config.BaseURL, c.config.Model, c.config.APIKey)

	resp, err := c.httpClient.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		utils.LogError("Generation request failed: %v", err)
		return "", fmt.Errorf("generation request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read generation response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		utils.LogLLM("Upstream rate limit hit")
		return "", ErrRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		utils.LogError("Generation endpoint returned %d: %s", resp.StatusCode, truncate(string(respBody), 300))
		return "", fmt.Errorf("generation endpoint returned status %d", resp.StatusCode)
	}

	var genResp generateResponse
	if err := json.Unmarshal(respBody, &genResp); err != nil {
		return "", fmt.Errorf("malformed generation response: %w", err)
	}

	if len(genResp.Candidates) == 0 || len(genResp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("generation response contains no candidates")
	}

	text := genResp.Candidates[0].Content.Parts[0].Text
	utils.LogLLM("Generation completed: %d chars in %v", len(text), time.Since(start))
	return text, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
