// Package line はLINE Messaging APIとの連携機能を提供する。
// Webhookの署名検証、イベントのデコード、返信・プッシュメッセージの送信、
// Flexメッセージのテンプレートを含む。
package line

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
)

// SignatureHeader はWebhookリクエストの署名が格納されるヘッダー名。
const SignatureHeader = "x-line-signature"

var (
	// ErrMissingSignature は署名ヘッダーが存在しない場合のエラー。
	ErrMissingSignature = errors.New("line: missing signature")
	// ErrInvalidSignature は署名が本文と一致しない場合のエラー。
	ErrInvalidSignature = errors.New("line: invalid signature")
)

// VerifySignature はリクエスト本文のHMAC-SHA256をチャネルシークレットで計算し、
// base64エンコードされた署名と比較する。
// bodyはパース前の生のバイト列でなければならない。
// 比較は不一致位置に依存しない定数時間で行う。
func VerifySignature(channelSecret string, body []byte, signature string) error {
	if signature == "" {
		return ErrMissingSignature
	}

	decoded, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return ErrInvalidSignature
	}

	if !hmac.Equal(decoded, Sign(channelSecret, body)) {
		return ErrInvalidSignature
	}
	return nil
}

// Sign はbodyに対するHMAC-SHA256ダイジェストを返す。
func Sign(channelSecret string, body []byte) []byte {
	mac := hmac.New(sha256.New, []byte(channelSecret))
	mac.Write(body)
	return mac.Sum(nil)
}

// SignBase64 はSignの結果をヘッダー値の形式（base64）で返す。
func SignBase64(channelSecret string, body []byte) string {
	return base64.StdEncoding.EncodeToString(Sign(channelSecret, body))
}
