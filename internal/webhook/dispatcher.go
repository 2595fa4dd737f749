// Package webhook は署名検証済みのLINE Webhookイベントを種別ごとのハンドラーへ振り分ける。
package webhook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/hitoshi/kotakun/internal/line"
	"github.com/hitoshi/kotakun/internal/metrics"
)

// DefaultConcurrency は1回の配信で同時に処理するイベント数の既定値。
const DefaultConcurrency = 4

// ErrEmptyReplyToken は返信が必要なイベントに返信トークンがない場合のエラー。
var ErrEmptyReplyToken = errors.New("webhook: event has no reply token")

// 結果のステータス。
const (
	StatusReplied = "replied"
	StatusIgnored = "ignored"
)

// Replier は返信トークン宛てにメッセージを送信するインターフェース。
type Replier interface {
	Reply(ctx context.Context, replyToken string, messages ...line.Message) error
}

// Result は正常に処理されたイベント1件の結果。
type Result struct {
	Index          int    `json:"index"`
	WebhookEventID string `json:"webhookEventId,omitempty"`
	Type           string `json:"type"`
	Status         string `json:"status"`
}

// テキストメッセージのトリガーフレーズ。メッセージ本文との完全一致で判定する。
var (
	counselingTriggers = []string{"カウンセリング", "カウンセリング開始", "counseling"}
	myPageTriggers     = []string{"マイページ", "mypage"}
)

// Dispatcher はイベント列を並行に処理する。
// 1件の失敗（パニックを含む）は他のイベントの処理を妨げない。
type Dispatcher struct {
	replier     Replier
	templates   *line.Templates
	recorder    metrics.EventRecorder
	logger      *slog.Logger
	concurrency int
}

// NewDispatcher は新しいDispatcherを生成する。
// concurrencyが1未満の場合はDefaultConcurrencyを使う。
func NewDispatcher(replier Replier, templates *line.Templates, recorder metrics.EventRecorder, logger *slog.Logger, concurrency int) *Dispatcher {
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &Dispatcher{
		replier:     replier,
		templates:   templates,
		recorder:    recorder,
		logger:      logger,
		concurrency: concurrency,
	}
}

// Dispatch はイベントを処理し、成功したイベントの結果を入力順で返す。
// 失敗したイベントはログとメトリクスに記録され、結果からは除外される。
func (d *Dispatcher) Dispatch(ctx context.Context, events []line.Event) []Result {
	slots := make([]*Result, len(events))

	var g errgroup.Group
	g.SetLimit(d.concurrency)

	for i, ev := range events {
		g.Go(func() error {
			status, err := d.handleSafely(ctx, ev)
			eventType := string(ev.Type())
			if err != nil {
				d.recorder.RecordWebhookEvent(eventType, metrics.OutcomeFailed)
				d.logger.Error("Webhookイベントの処理に失敗しました",
					slog.Int("index", i),
					slog.String("event_type", eventType),
					slog.String("webhook_event_id", ev.WebhookEventID()),
					slog.String("user_id", ev.UserID()),
					slog.String("error", err.Error()),
				)
				// 他のイベントを止めないためエラーはグループへ返さない
				return nil
			}

			outcome := metrics.OutcomeHandled
			if status == StatusIgnored {
				outcome = metrics.OutcomeIgnored
			}
			d.recorder.RecordWebhookEvent(eventType, outcome)
			slots[i] = &Result{
				Index:          i,
				WebhookEventID: ev.WebhookEventID(),
				Type:           eventType,
				Status:         status,
			}
			return nil
		})
	}
	_ = g.Wait()

	results := make([]Result, 0, len(events))
	for _, r := range slots {
		if r != nil {
			results = append(results, *r)
		}
	}
	return results
}

// handleSafely はhandleを呼び出し、パニックをエラーに変換する。
func (d *Dispatcher) handleSafely(ctx context.Context, ev line.Event) (status string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("webhook: handler panicked: %v", rec)
		}
	}()
	return d.handle(ctx, ev)
}

func (d *Dispatcher) handle(ctx context.Context, ev line.Event) (string, error) {
	switch e := ev.(type) {
	case line.FollowEvent:
		return d.reply(ctx, e, d.templates.Welcome())

	case line.TextMessageEvent:
		return d.reply(ctx, e, d.textReply(e.Text))

	case line.ImageMessageEvent:
		return d.reply(ctx, e, d.templates.ImageReceived())

	case line.PostbackEvent:
		if e.Data == line.PostbackStartCounseling {
			return d.reply(ctx, e, d.templates.CounselingStart())
		}
		return d.reply(ctx, e, d.templates.PostbackEcho(e.Data))

	case line.UnknownEvent:
		d.logger.Info("未対応のWebhookイベントを受信しました",
			slog.String("event_type", string(e.Type())),
			slog.String("message_type", e.MessageType),
			slog.String("user_id", e.UserID()),
		)
		return StatusIgnored, nil
	}

	return "", fmt.Errorf("webhook: unsupported event %T", ev)
}

// textReply はテキストメッセージの内容に応じた返信を選ぶ。
func (d *Dispatcher) textReply(text string) line.Message {
	switch {
	case matches(text, counselingTriggers):
		return d.templates.CounselingStart()
	case matches(text, myPageTriggers):
		return d.templates.MyPage()
	default:
		return d.templates.OpenApp()
	}
}

func matches(text string, phrases []string) bool {
	for _, p := range phrases {
		if text == p {
			return true
		}
	}
	return false
}

func (d *Dispatcher) reply(ctx context.Context, ev line.Event, msg line.Message) (string, error) {
	if ev.ReplyToken() == "" {
		return "", ErrEmptyReplyToken
	}
	if err := d.replier.Reply(ctx, ev.ReplyToken(), msg); err != nil {
		return "", fmt.Errorf("webhook: reply failed: %w", err)
	}
	return StatusReplied, nil
}
