package advice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hitoshi/kotakun/internal/metrics"
)

const (
	// DefaultBaseURL はGemini APIのベースURL。
	DefaultBaseURL = "https://generativelanguage.googleapis.com"
	// DefaultModel は既定で使用するモデル名。
	DefaultModel = "gemini-2.0-flash"

	// maxResponseSize はレスポンスとして読み取る最大バイト数。
	maxResponseSize = 1 << 20
)

// GeminiConfig はGeminiClientの設定。
type GeminiConfig struct {
	APIKey  string
	Model   string // 空の場合はDefaultModel
	BaseURL string // 空の場合はDefaultBaseURL
}

// GeminiClient はGemini APIのgenerateContentを呼び出すクライアント。
type GeminiClient struct {
	httpClient *http.Client
	logger     *slog.Logger
	recorder   metrics.UpstreamRecorder
	endpoint   string
	apiKey     string
}

// NewGeminiClient はGeminiClientの新しいインスタンスを生成する。
// recorderがnilの場合はメトリクスを記録しない。
func NewGeminiClient(httpClient *http.Client, cfg GeminiConfig, logger *slog.Logger, recorder metrics.UpstreamRecorder) *GeminiClient {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &GeminiClient{
		httpClient: httpClient,
		logger:     logger,
		recorder:   recorder,
		endpoint:   baseURL + "/v1beta/models/" + url.PathEscape(model) + ":generateContent",
		apiKey:     cfg.APIKey,
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

// Generate はプロンプトを送信し、最初の候補のテキストを返す。
// 2xx以外のステータスや候補が空の場合はエラーを返す。
func (c *GeminiClient) Generate(ctx context.Context, prompt string) (text string, err error) {
	start := time.Now()
	defer func() {
		c.recorder.RecordUpstreamCall(metrics.ServiceGemini, time.Since(start), err)
	}()

	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
	})
	if err != nil {
		return "", fmt.Errorf("gemini: failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("gemini: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Gemini APIの呼び出しに失敗しました",
			slog.String("error", err.Error()),
		)
		return "", fmt.Errorf("gemini: request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", fmt.Errorf("gemini: failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("Gemini APIがエラーステータスを返しました",
			slog.Int("http_status", resp.StatusCode),
		)
		return "", fmt.Errorf("gemini: API returned status %d", resp.StatusCode)
	}

	var decoded geminiResponse
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return "", fmt.Errorf("gemini: failed to decode response: %w", err)
	}

	if len(decoded.Candidates) == 0 || len(decoded.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini: no candidates in response")
	}

	var sb strings.Builder
	for _, part := range decoded.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", fmt.Errorf("gemini: empty text in response")
	}
	return sb.String(), nil
}
