// Package genmedia calls the Gemini media-generation API. Image generation
// is a single request; video generation is a long-running operation polled to
// completion, reporting progress through an opaque callback so callers off
// the mutation path can render status without blocking anything.
package genmedia

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

	imageModel = "imagen-4.0-generate-001"
	videoModel = "veo-2.0-generate-001"

	defaultPollInterval = 10 * time.Second
)

// ProgressFunc receives human-readable status messages during long-running
// generation. It must not block.
type ProgressFunc func(message string)

// Client talks to the generation API. Each request carries its own timeout;
// the overall operation is bounded only by the caller's context, since video
// generation can run for minutes.
type Client struct {
	apiKey       string
	baseURL      string
	httpClient   *http.Client
	pollInterval time.Duration
}

// NewClient creates a generation client. The key is required; everything
// else has defaults.
func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		pollInterval: defaultPollInterval,
	}
}

type imageRequest struct {
	Instances  []imageInstance `json:"instances"`
	Parameters imageParameters `json:"parameters"`
}

type imageInstance struct {
	Prompt string `json:"prompt"`
}

type imageParameters struct {
	SampleCount    int    `json:"sampleCount"`
	AspectRatio    string `json:"aspectRatio"`
	OutputMimeType string `json:"outputMimeType"`
}

type imageResponse struct {
	Predictions []struct {
		BytesBase64Encoded string `json:"bytesBase64Encoded"`
		MimeType           string `json:"mimeType"`
	} `json:"predictions"`
}

// GenerateImage produces one square JPEG for the prompt and returns the raw
// image bytes.
func (c *Client) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	reqBody := imageRequest{
		Instances: []imageInstance{{Prompt: prompt}},
		Parameters: imageParameters{
			SampleCount:    1,
			AspectRatio:    "1:1",
			OutputMimeType: "image/jpeg",
		},
	}

	var resp imageResponse
	url := fmt.Sprintf("%s/models/%s:predict", c.baseURL, imageModel)
	if err := c.postJSON(ctx, url, reqBody, &resp); err != nil {
		return nil, fmt.Errorf("generate image: %w", err)
	}
	if len(resp.Predictions) == 0 {
		return nil, fmt.Errorf("generate image: api returned no image")
	}

	data, err := base64.StdEncoding.DecodeString(resp.Predictions[0].BytesBase64Encoded)
	if err != nil {
		return nil, fmt.Errorf("generate image: decode payload: %w", err)
	}
	return data, nil
}

type videoRequest struct {
	Instances  []videoInstance `json:"instances"`
	Parameters videoParameters `json:"parameters"`
}

type videoInstance struct {
	Prompt string `json:"prompt"`
}

type videoParameters struct {
	SampleCount int    `json:"sampleCount"`
	AspectRatio string `json:"aspectRatio"`
}

type videoOperation struct {
	Name     string `json:"name"`
	Done     bool   `json:"done"`
	Response struct {
		GenerateVideoResponse struct {
			GeneratedSamples []struct {
				Video struct {
					URI string `json:"uri"`
				} `json:"video"`
			} `json:"generatedSamples"`
		} `json:"generateVideoResponse"`
	} `json:"response"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// GenerateVideo starts a video generation operation and polls it until done,
// then downloads the result and returns it as an inline data: reference.
// progress may be nil. Cancel via ctx; no fixed completion time is assumed.
func (c *Client) GenerateVideo(ctx context.Context, prompt, aspectRatio string, progress ProgressFunc) (string, error) {
	notify := func(msg string) {
		if progress != nil {
			progress(msg)
		}
	}

	notify("Starting video generation...")
	reqBody := videoRequest{
		Instances:  []videoInstance{{Prompt: prompt}},
		Parameters: videoParameters{SampleCount: 1, AspectRatio: aspectRatio},
	}

	var op videoOperation
	startURL := fmt.Sprintf("%s/models/%s:predictLongRunning", c.baseURL, videoModel)
	if err := c.postJSON(ctx, startURL, reqBody, &op); err != nil {
		return "", fmt.Errorf("generate video: %w", err)
	}

	notify("Your request is being processed. This can take a few minutes...")
	for !op.Done {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(c.pollInterval):
		}
		notify("Checking status...")
		if err := c.getJSON(ctx, fmt.Sprintf("%s/%s", c.baseURL, op.Name), &op); err != nil {
			return "", fmt.Errorf("generate video: poll operation: %w", err)
		}
		if op.Error.Message != "" {
			return "", fmt.Errorf("generate video: operation failed: %s", op.Error.Message)
		}
	}

	notify("Generation complete! Fetching video...")
	samples := op.Response.GenerateVideoResponse.GeneratedSamples
	if len(samples) == 0 || samples[0].Video.URI == "" {
		return "", fmt.Errorf("generate video: operation completed without a video uri")
	}

	ref, err := c.downloadAsInline(ctx, samples[0].Video.URI)
	if err != nil {
		return "", fmt.Errorf("generate video: %w", err)
	}
	notify("Done!")
	return ref, nil
}

// downloadAsInline fetches the finished video and wraps it as a data: URL so
// the caller holds a self-contained media reference.
func (c *Client) downloadAsInline(ctx context.Context, uri string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return "", fmt.Errorf("create download request: %w", err)
	}
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("download video: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download video: status=%d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read video body: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "video/mp4"
	}
	return fmt.Sprintf("data:%s;base64,%s", contentType, base64.StdEncoding.EncodeToString(data)), nil
}

func (c *Client) postJSON(ctx context.Context, url string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	return c.do(req, out)
}

func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("x-goog-api-key", c.apiKey)

	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		log.Printf("[GenMedia] API error: status=%d body=%s", resp.StatusCode, string(respBody[:min(len(respBody), 512)]))
		return fmt.Errorf("api error: status=%d", resp.StatusCode)
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
