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

// OpenAIProvider calls an OpenAI-compatible chat-completions endpoint,
// either api.openai.com or an Azure OpenAI deployment. Azure is selected
// when Endpoint is set.
type OpenAIProvider struct {
	// plain OpenAI
	BaseURL string
	APIKey  string
	Model   string

	// Azure deployment
	Endpoint   string
	AzureKey   string
	Deployment string
	APIVersion string

	Client *http.Client
}

type chatMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatReq struct {
	Model    string    `json:"model,omitempty"`
	Messages []chatMsg `json:"messages"`
}

type chatResp struct {
	Choices []struct {
		Message chatMsg `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func NewOpenAIProvider(baseURL, apiKey, model string) *OpenAIProvider {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &OpenAIProvider{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Model:   model,
		Client:  &http.Client{Timeout: 90 * time.Second},
	}
}

func NewAzureProvider(endpoint, apiKey, deployment, apiVersion string) *OpenAIProvider {
	if apiVersion == "" {
		apiVersion = "2024-06-01"
	}
	return &OpenAIProvider{
		Endpoint:   endpoint,
		AzureKey:   apiKey,
		Deployment: deployment,
		APIVersion: apiVersion,
		Client:     &http.Client{Timeout: 90 * time.Second},
	}
}

func (p *OpenAIProvider) azure() bool { return p.Endpoint != "" }

func (p *OpenAIProvider) Chat(ctx context.Context, messages []Message) (string, error) {
	if p.Client == nil {
		return "", errors.New("openai: http client is nil")
	}

	body := chatReq{
		Messages: func() []chatMsg {
			out := make([]chatMsg, 0, len(messages))
			for _, m := range messages {
				out = append(out, chatMsg{Role: m.Role, Content: m.Content})
			}
			return out
		}(),
	}

	var url string
	if p.azure() {
		if strings.TrimSpace(p.AzureKey) == "" {
			return "", errors.New("openai: azure api key is required")
		}
		if strings.TrimSpace(p.Deployment) == "" {
			return "", errors.New("openai: azure deployment is required")
		}
		url = fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
			strings.TrimRight(p.Endpoint, "/"), p.Deployment, p.APIVersion)
	} else {
		if strings.TrimSpace(p.APIKey) == "" {
			return "", errors.New("openai: api key is required")
		}
		if strings.TrimSpace(p.Model) == "" {
			return "", errors.New("openai: model is required")
		}
		body.Model = p.Model
		url = fmt.Sprintf("%s/chat/completions", strings.TrimRight(p.BaseURL, "/"))
	}

	b, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if p.azure() {
		req.Header.Set("api-key", p.AzureKey)
	} else {
		req.Header.Set("Authorization", "Bearer "+p.APIKey)
	}

	resp, err := p.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
		msg := strings.TrimSpace(string(raw))
		if msg == "" {
			msg = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return "", fmt.Errorf("openai: %s", msg)
	}

	var decoded chatResp
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", err
	}
	if decoded.Error != nil && decoded.Error.Message != "" {
		return "", errors.New(decoded.Error.Message)
	}
	if len(decoded.Choices) == 0 {
		return "", errors.New("openai: empty response")
	}
	return decoded.Choices[0].Message.Content, nil
}
