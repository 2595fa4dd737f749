package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/hitoshi/kotakun/internal/advice"
	"github.com/hitoshi/kotakun/internal/line"
	"github.com/hitoshi/kotakun/internal/model"
)

// --- モック定義 ---

// mockAdviceService はAdviceServiceInterfaceのモック実装。
type mockAdviceService struct {
	generateFn func(ctx context.Context, userID string) (*advice.Result, error)
}

func (m *mockAdviceService) Generate(ctx context.Context, userID string) (*advice.Result, error) {
	if m.generateFn != nil {
		return m.generateFn(ctx, userID)
	}
	return &advice.Result{}, nil
}

// mockPusher はMessagePusherのモック実装。送信内容を記録する。
type mockPusher struct {
	mu     sync.Mutex
	pushFn func(ctx context.Context, to string, messages ...line.Message) error
	sent   []pushedMessage
}

type pushedMessage struct {
	to       string
	messages []line.Message
}

func (m *mockPusher) Push(ctx context.Context, to string, messages ...line.Message) error {
	m.mu.Lock()
	m.sent = append(m.sent, pushedMessage{to: to, messages: messages})
	m.mu.Unlock()
	if m.pushFn != nil {
		return m.pushFn(ctx, to, messages...)
	}
	return nil
}

func (m *mockPusher) calls() []pushedMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]pushedMessage(nil), m.sent...)
}

func testTemplates() *line.Templates {
	return line.NewTemplates("https://liff.example.com")
}

// --- POST /api/ai-advice ---

func TestAdviceHandler_Generate_Success(t *testing.T) {
	svc := &mockAdviceService{
		generateFn: func(ctx context.Context, userID string) (*advice.Result, error) {
			if userID != "U123" {
				t.Errorf("userID = %q, want %q", userID, "U123")
			}
			return &advice.Result{Advice: "野菜を多めに摂りましょう。", NutritionData: sampleTargets}, nil
		},
	}
	h := NewAdviceHandler(svc, &mockPusher{}, testTemplates(), discardLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/ai-advice", strings.NewReader(`{"userId":"U123"}`))
	w := httptest.NewRecorder()

	h.Generate(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp struct {
		Success       bool                   `json:"success"`
		AIAdvice      string                 `json:"aiAdvice"`
		NutritionData model.NutritionTargets `json:"nutritionData"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.Success {
		t.Error("success = false, want true")
	}
	if resp.AIAdvice != "野菜を多めに摂りましょう。" {
		t.Errorf("aiAdvice = %q, want %q", resp.AIAdvice, "野菜を多めに摂りましょう。")
	}
	if resp.NutritionData != sampleTargets {
		t.Errorf("nutritionData = %+v, want %+v", resp.NutritionData, sampleTargets)
	}
}

func TestAdviceHandler_Generate_Errors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"ユーザー未登録", model.NewUserNotFoundError(), http.StatusNotFound, model.ErrCodeUserNotFound},
		{"カウンセリング未実施", model.NewCounselingNotFoundError(), http.StatusNotFound, model.ErrCodeCounselingNotFound},
		{"userId未指定", model.NewMissingFieldError("userId"), http.StatusBadRequest, model.ErrCodeMissingField},
		{"Gemini失敗", model.NewUpstreamFailedError("gemini"), http.StatusInternalServerError, model.ErrCodeUpstreamFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockAdviceService{
				generateFn: func(ctx context.Context, userID string) (*advice.Result, error) {
					return nil, tt.err
				},
			}
			h := NewAdviceHandler(svc, &mockPusher{}, testTemplates(), discardLogger())

			req := httptest.NewRequest(http.MethodPost, "/api/ai-advice", strings.NewReader(`{"userId":"U1"}`))
			w := httptest.NewRecorder()

			h.Generate(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			result := parseAPIErrorResponse(t, w)
			if result["code"] != tt.wantCode {
				t.Errorf("code = %q, want %q", result["code"], tt.wantCode)
			}
		})
	}
}

// --- POST /api/send-ai-advice ---

func TestAdviceHandler_Send_PushesFlexMessage(t *testing.T) {
	pusher := &mockPusher{}
	h := NewAdviceHandler(&mockAdviceService{}, pusher, testTemplates(), discardLogger())

	body := `{"userId":"U123","aiAdvice":"よく眠りましょう。","nutritionData":{"dailyCalories":2487,"protein":124,"fat":69,"carbs":342,"bmi":22.5,"bmr":1605}}`
	req := httptest.NewRequest(http.MethodPost, "/api/send-ai-advice", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.Send(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var resp map[string]any
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["success"] != true {
		t.Errorf("success = %v, want true", resp["success"])
	}

	calls := pusher.calls()
	if len(calls) != 1 {
		t.Fatalf("push calls = %d, want 1", len(calls))
	}
	if calls[0].to != "U123" {
		t.Errorf("to = %q, want %q", calls[0].to, "U123")
	}
	if len(calls[0].messages) != 1 {
		t.Fatalf("messages = %d, want 1", len(calls[0].messages))
	}
	if got := calls[0].messages[0].MessageType(); got != "flex" {
		t.Errorf("message type = %q, want %q", got, "flex")
	}

	want := testTemplates().AIAdvice("よく眠りましょう。", sampleTargets)
	gotJSON, _ := json.Marshal(calls[0].messages[0])
	wantJSON, _ := json.Marshal(want)
	if string(gotJSON) != string(wantJSON) {
		t.Errorf("pushed message = %s, want %s", gotJSON, wantJSON)
	}
}

func TestAdviceHandler_Send_MissingFields(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"userIdなし", `{"aiAdvice":"a","nutritionData":{}}`},
		{"aiAdviceなし", `{"userId":"U1","nutritionData":{}}`},
		{"nutritionDataなし", `{"userId":"U1","aiAdvice":"a"}`},
		{"空", `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pusher := &mockPusher{}
			h := NewAdviceHandler(&mockAdviceService{}, pusher, testTemplates(), discardLogger())

			req := httptest.NewRequest(http.MethodPost, "/api/send-ai-advice", strings.NewReader(tt.body))
			w := httptest.NewRecorder()

			h.Send(w, req)

			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
			}
			result := parseAPIErrorResponse(t, w)
			if result["code"] != model.ErrCodeMissingField {
				t.Errorf("code = %q, want %q", result["code"], model.ErrCodeMissingField)
			}
			if n := len(pusher.calls()); n != 0 {
				t.Errorf("push calls = %d, want 0", n)
			}
		})
	}
}

func TestAdviceHandler_Send_PushFailure(t *testing.T) {
	pusher := &mockPusher{
		pushFn: func(ctx context.Context, to string, messages ...line.Message) error {
			return &line.APIError{StatusCode: http.StatusBadRequest, Body: `{"message":"Invalid reply token"}`}
		},
	}
	h := NewAdviceHandler(&mockAdviceService{}, pusher, testTemplates(), discardLogger())

	body := `{"userId":"U1","aiAdvice":"a","nutritionData":{"dailyCalories":2000}}`
	req := httptest.NewRequest(http.MethodPost, "/api/send-ai-advice", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.Send(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
	result := parseAPIErrorResponse(t, w)
	if result["code"] != model.ErrCodeUpstreamFailed {
		t.Errorf("code = %q, want %q", result["code"], model.ErrCodeUpstreamFailed)
	}
	if strings.Contains(result["message"], "Invalid reply token") {
		t.Error("upstream response body should not leak to the client")
	}
}

// --- POST /api/send-message ---

func TestMessageHandler_Send_RelaysText(t *testing.T) {
	pusher := &mockPusher{}
	h := NewMessageHandler(pusher, testTemplates(), discardLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/send-message", strings.NewReader(`{"userId":"U123","message":"こんにちは"}`))
	w := httptest.NewRecorder()

	h.Send(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	calls := pusher.calls()
	if len(calls) != 1 {
		t.Fatalf("push calls = %d, want 1", len(calls))
	}
	if calls[0].to != "U123" {
		t.Errorf("to = %q, want %q", calls[0].to, "U123")
	}
	msg, ok := calls[0].messages[0].(line.TextMessage)
	if !ok {
		t.Fatalf("message type = %T, want line.TextMessage", calls[0].messages[0])
	}
	if msg.Text != "LIFFアプリから: こんにちは" {
		t.Errorf("text = %q, want %q", msg.Text, "LIFFアプリから: こんにちは")
	}
}

func TestMessageHandler_Send_MissingFields(t *testing.T) {
	for _, body := range []string{`{"userId":"U1"}`, `{"message":"hi"}`, `{"userId":" ","message":"hi"}`} {
		pusher := &mockPusher{}
		h := NewMessageHandler(pusher, testTemplates(), discardLogger())

		req := httptest.NewRequest(http.MethodPost, "/api/send-message", strings.NewReader(body))
		w := httptest.NewRecorder()

		h.Send(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("body %s: status = %d, want %d", body, w.Code, http.StatusBadRequest)
		}
		if n := len(pusher.calls()); n != 0 {
			t.Errorf("body %s: push calls = %d, want 0", body, n)
		}
	}
}

func TestMessageHandler_Send_PushFailure(t *testing.T) {
	pusher := &mockPusher{
		pushFn: func(ctx context.Context, to string, messages ...line.Message) error {
			return errors.New("dial tcp: connection refused")
		},
	}
	h := NewMessageHandler(pusher, testTemplates(), discardLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/send-message", strings.NewReader(`{"userId":"U1","message":"hi"}`))
	w := httptest.NewRecorder()

	h.Send(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
	result := parseAPIErrorResponse(t, w)
	if result["code"] != model.ErrCodeUpstreamFailed {
		t.Errorf("code = %q, want %q", result["code"], model.ErrCodeUpstreamFailed)
	}
}
