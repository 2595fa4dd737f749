package line

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType はWebhookイベントの種別。
type EventType string

const (
	EventTypeMessage  EventType = "message"
	EventTypeFollow   EventType = "follow"
	EventTypePostback EventType = "postback"
)

// Event はデコード済みのWebhookイベント。
// 具体型は FollowEvent, TextMessageEvent, ImageMessageEvent, PostbackEvent,
// UnknownEvent のいずれかに限られる。
type Event interface {
	Type() EventType
	ReplyToken() string
	UserID() string
	WebhookEventID() string
	isEvent()
}

// EventMeta は全イベントに共通する属性。
type EventMeta struct {
	EventType EventType
	Token     string // 返信トークン（1回限り有効）
	Source    string // 送信元ユーザーID
	ID        string // webhookEventId
	Timestamp time.Time
}

// Type はイベント種別を返す。
func (m EventMeta) Type() EventType { return m.EventType }

// ReplyToken は返信トークンを返す。
func (m EventMeta) ReplyToken() string { return m.Token }

// UserID は送信元ユーザーIDを返す。
func (m EventMeta) UserID() string { return m.Source }

// WebhookEventID はLINEプラットフォームが付与するイベントIDを返す。
func (m EventMeta) WebhookEventID() string { return m.ID }

func (EventMeta) isEvent() {}

// FollowEvent は友だち追加イベント。
type FollowEvent struct {
	EventMeta
}

// TextMessageEvent はテキストメッセージ受信イベント。
type TextMessageEvent struct {
	EventMeta
	MessageID string
	Text      string
}

// ImageMessageEvent は画像メッセージ受信イベント。
type ImageMessageEvent struct {
	EventMeta
	MessageID string
}

// PostbackEvent はボタン操作などによるポストバックイベント。
type PostbackEvent struct {
	EventMeta
	Data string
}

// UnknownEvent は処理対象外のイベント。
// 未対応のイベント種別、未対応のメッセージ種別、解釈できない形式を含む。
type UnknownEvent struct {
	EventMeta
	MessageType string
}

// webhookRequest はWebhookリクエストボディ。
type webhookRequest struct {
	Destination string            `json:"destination"`
	Events      []json.RawMessage `json:"events"`
}

// rawEvent はLINEから送られるイベントのJSON表現。
type rawEvent struct {
	Type           string `json:"type"`
	ReplyToken     string `json:"replyToken"`
	WebhookEventID string `json:"webhookEventId"`
	Timestamp      int64  `json:"timestamp"`
	Source         struct {
		Type   string `json:"type"`
		UserID string `json:"userId"`
	} `json:"source"`
	Message *struct {
		ID   string `json:"id"`
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"message"`
	Postback *struct {
		Data string `json:"data"`
	} `json:"postback"`
}

// ParseEvents はWebhookリクエストボディをイベント列にデコードする。
// ボディ全体がJSONとして解釈できない場合はエラーを返す。
// 個々のイベントの形式が不正な場合はUnknownEventとして扱い、残りのイベントの処理を妨げない。
func ParseEvents(body []byte) ([]Event, error) {
	var req webhookRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, fmt.Errorf("failed to decode webhook body: %w", err)
	}

	events := make([]Event, 0, len(req.Events))
	for _, raw := range req.Events {
		events = append(events, decodeEvent(raw))
	}
	return events, nil
}

// decodeEvent は1件のイベントを具体型に変換する。
func decodeEvent(raw json.RawMessage) Event {
	var re rawEvent
	if err := json.Unmarshal(raw, &re); err != nil {
		return UnknownEvent{EventMeta: EventMeta{EventType: "invalid"}}
	}

	meta := EventMeta{
		EventType: EventType(re.Type),
		Token:     re.ReplyToken,
		Source:    re.Source.UserID,
		ID:        re.WebhookEventID,
	}
	if re.Timestamp > 0 {
		meta.Timestamp = time.UnixMilli(re.Timestamp)
	}

	switch meta.EventType {
	case EventTypeFollow:
		return FollowEvent{EventMeta: meta}

	case EventTypePostback:
		if re.Postback == nil {
			return UnknownEvent{EventMeta: meta}
		}
		return PostbackEvent{EventMeta: meta, Data: re.Postback.Data}

	case EventTypeMessage:
		if re.Message == nil {
			return UnknownEvent{EventMeta: meta}
		}
		switch re.Message.Type {
		case "text":
			return TextMessageEvent{EventMeta: meta, MessageID: re.Message.ID, Text: re.Message.Text}
		case "image":
			return ImageMessageEvent{EventMeta: meta, MessageID: re.Message.ID}
		default:
			return UnknownEvent{EventMeta: meta, MessageType: re.Message.Type}
		}
	}

	return UnknownEvent{EventMeta: meta}
}
