package synth

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/chrimage/content-mill/internal/fileutil"
)

const defaultHTTPTimeout = 180 * time.Second

// Config captures the settings for speech and image generation.
type Config struct {
	APIKey       string
	BaseURL      string
	SpeechModel  string
	ImageModel   string
	ImageSize    string
	ImageQuality string
	ImageStyle   string
}

// Client generates narration clips and still images through the OpenAI audio
// and image endpoints.
type Client struct {
	cfg        Config
	api        *openai.Client
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used for API calls and image downloads.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs a synthesis client.
func NewClient(cfg Config, opts ...Option) *Client {
	client := &Client{
		cfg: Config{
			APIKey:       strings.TrimSpace(cfg.APIKey),
			BaseURL:      strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			SpeechModel:  strings.TrimSpace(cfg.SpeechModel),
			ImageModel:   strings.TrimSpace(cfg.ImageModel),
			ImageSize:    strings.TrimSpace(cfg.ImageSize),
			ImageQuality: strings.TrimSpace(cfg.ImageQuality),
			ImageStyle:   strings.TrimSpace(cfg.ImageStyle),
		},
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.SpeechModel == "" {
		client.cfg.SpeechModel = string(openai.TTSModel1)
	}
	if client.cfg.ImageModel == "" {
		client.cfg.ImageModel = openai.CreateImageModelDallE3
	}
	if client.cfg.ImageSize == "" {
		client.cfg.ImageSize = openai.CreateImageSize1792x1024
	}
	if client.cfg.ImageQuality == "" {
		client.cfg.ImageQuality = openai.CreateImageQualityStandard
	}
	if client.cfg.ImageStyle == "" {
		client.cfg.ImageStyle = openai.CreateImageStyleNatural
	}

	apiCfg := openai.DefaultConfig(client.cfg.APIKey)
	if client.cfg.BaseURL != "" {
		apiCfg.BaseURL = client.cfg.BaseURL
	}
	apiCfg.HTTPClient = client.httpClient
	client.api = openai.NewClientWithConfig(apiCfg)
	return client
}

// Speech synthesizes text with the given voice and writes the mp3 to dest.
func (c *Client) Speech(ctx context.Context, text string, voice Voice, dest string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return errors.New("speech: text required")
	}
	if !voice.Valid() {
		return fmt.Errorf("speech: unknown voice %q", voice)
	}
	if c.cfg.APIKey == "" {
		return errors.New("speech: api key required")
	}
	resp, err := c.api.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(c.cfg.SpeechModel),
		Input:          text,
		Voice:          openai.SpeechVoice(voice),
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return fmt.Errorf("speech: %w", err)
	}
	defer resp.Close()
	if err := fileutil.WriteAtomic(dest, resp); err != nil {
		return fmt.Errorf("speech: %w", err)
	}
	return nil
}

// Image generates a still for prompt and writes it to dest. It returns the
// prompt the provider reports having used, which may differ from the input.
func (c *Client) Image(ctx context.Context, prompt, dest string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("image: prompt required")
	}
	if c.cfg.APIKey == "" {
		return "", errors.New("image: api key required")
	}
	resp, err := c.api.CreateImage(ctx, openai.ImageRequest{
		Prompt:         prompt,
		Model:          c.cfg.ImageModel,
		N:              1,
		Size:           c.cfg.ImageSize,
		Quality:        c.cfg.ImageQuality,
		Style:          c.cfg.ImageStyle,
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
	})
	if err != nil {
		return "", fmt.Errorf("image: %w", err)
	}
	if len(resp.Data) == 0 {
		return "", errors.New("image: provider returned no data")
	}
	data := resp.Data[0]
	switch {
	case data.B64JSON != "":
		raw, err := base64.StdEncoding.DecodeString(data.B64JSON)
		if err != nil {
			return "", fmt.Errorf("image: decode payload: %w", err)
		}
		if err := fileutil.WriteAtomic(dest, bytes.NewReader(raw)); err != nil {
			return "", fmt.Errorf("image: %w", err)
		}
	case data.URL != "":
		if err := c.download(ctx, data.URL, dest); err != nil {
			return "", fmt.Errorf("image: %w", err)
		}
	default:
		return "", errors.New("image: provider returned neither data nor url")
	}
	return strings.TrimSpace(data.RevisedPrompt), nil
}

// HealthCheck lists the provider's models and confirms the speech and image
// models are among them.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.cfg.APIKey == "" {
		return errors.New("synth health: api key required")
	}
	models, err := c.api.ListModels(ctx)
	if err != nil {
		return fmt.Errorf("synth health: %w", err)
	}
	want := map[string]bool{c.cfg.SpeechModel: false, c.cfg.ImageModel: false}
	for _, model := range models.Models {
		if _, ok := want[model.ID]; ok {
			want[model.ID] = true
		}
	}
	var missing []string
	for _, id := range []string{c.cfg.SpeechModel, c.cfg.ImageModel} {
		if !want[id] {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("synth health: model not available: %s", strings.Join(missing, ", "))
	}
	return nil
}

func (c *Client) download(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("download: new request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("download: http %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	return fileutil.WriteAtomic(dest, resp.Body)
}

// IsContentPolicy reports whether err is a provider refusal on safety grounds,
// the failure a rephrased prompt is most likely to fix.
func IsContentPolicy(err error) bool {
	var apiErr *openai.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	if code, ok := apiErr.Code.(string); ok && code == "content_policy_violation" {
		return true
	}
	return strings.Contains(strings.ToLower(apiErr.Message), "safety system")
}
