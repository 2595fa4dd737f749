package line

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

	"github.com/hitoshi/kotakun/internal/metrics"
)

// DefaultBaseURL はLINE Messaging APIのベースURL。
const DefaultBaseURL = "https://api.line.me"

const (
	replyPath = "/v2/bot/message/reply"
	pushPath  = "/v2/bot/message/push"

	// maxErrorBodySize はエラーレスポンスとして読み取る最大バイト数。
	maxErrorBodySize = 4096
)

// APIError はLINE APIが2xx以外を返した場合のエラー。
type APIError struct {
	StatusCode int
	Body       string
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("line: API returned status %d: %s", e.StatusCode, e.Body)
}

// ClientConfig はClientの設定。
type ClientConfig struct {
	// AccessToken はチャネルアクセストークン（Bearer認証に使用）。
	AccessToken string
	// BaseURL はAPIのベースURL。空の場合はDefaultBaseURLを使う。
	BaseURL string
}

// Client はLINE Messaging APIのクライアント。
// 返信（replyトークン宛て）とプッシュ（ユーザーID宛て）の送信を行う。
// 失敗時の再送は行わない。
type Client struct {
	httpClient  *http.Client
	logger      *slog.Logger
	recorder    metrics.UpstreamRecorder
	baseURL     string
	accessToken string
}

// NewClient はClientの新しいインスタンスを生成する。
// recorderがnilの場合はメトリクスを記録しない。
func NewClient(httpClient *http.Client, cfg ClientConfig, logger *slog.Logger, recorder metrics.UpstreamRecorder) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &Client{
		httpClient:  httpClient,
		logger:      logger,
		recorder:    recorder,
		baseURL:     baseURL,
		accessToken: cfg.AccessToken,
	}
}

// replyRequest は返信APIのリクエストボディ。
type replyRequest struct {
	ReplyToken string    `json:"replyToken"`
	Messages   []Message `json:"messages"`
}

// pushRequest はプッシュAPIのリクエストボディ。
type pushRequest struct {
	To       string    `json:"to"`
	Messages []Message `json:"messages"`
}

// Reply は返信トークン宛てにメッセージを送信する。
func (c *Client) Reply(ctx context.Context, replyToken string, messages ...Message) error {
	if replyToken == "" {
		return fmt.Errorf("line: empty reply token")
	}
	return c.post(ctx, replyPath, replyRequest{ReplyToken: replyToken, Messages: messages})
}

// Push はユーザーID宛てにメッセージを送信する。
func (c *Client) Push(ctx context.Context, to string, messages ...Message) error {
	if to == "" {
		return fmt.Errorf("line: empty destination")
	}
	return c.post(ctx, pushPath, pushRequest{To: to, Messages: messages})
}

// post はJSONボディをPOSTし、2xx以外のレスポンスを*APIErrorとして返す。
func (c *Client) post(ctx context.Context, path string, payload any) (err error) {
	start := time.Now()
	defer func() {
		c.recorder.RecordUpstreamCall(metrics.ServiceLINE, time.Since(start), err)
	}()

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("line: failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("line: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("LINE APIの呼び出しに失敗しました",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("line: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		c.logger.Error("LINE APIがエラーステータスを返しました",
			slog.String("path", path),
			slog.Int("http_status", resp.StatusCode),
			slog.String("body", string(errBody)),
		)
		return &APIError{StatusCode: resp.StatusCode, Body: string(errBody)}
	}

	io.Copy(io.Discard, resp.Body)
	return nil
}
