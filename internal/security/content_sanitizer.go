package security

import (
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

// DefaultMaxFieldRunes は1項目あたりの最大文字数。
const DefaultMaxFieldRunes = 200

// TextSanitizerService はユーザー入力の自由記述をプレーンテキストに整える機能のインターフェース。
// AIへのプロンプトに埋め込む前に使用される。
type TextSanitizerService interface {
	// Sanitize はタグを除去し、空白を正規化し、最大文字数で切り詰めたテキストを返す。
	// 同一入力に対して常に同一出力を返す。
	Sanitize(raw string) string
}

// textSanitizer はTextSanitizerServiceの実装。
// bluemondayのStrictPolicyは全てのタグを除去し、scriptやstyleの中身も捨てる。
type textSanitizer struct {
	policy   *bluemonday.Policy
	maxRunes int
}

// NewTextSanitizer はTextSanitizerServiceの新しいインスタンスを生成する。
// maxRunesが0以下の場合はDefaultMaxFieldRunesを使う。
func NewTextSanitizer(maxRunes int) *textSanitizer {
	if maxRunes <= 0 {
		maxRunes = DefaultMaxFieldRunes
	}
	return &textSanitizer{
		policy:   bluemonday.StrictPolicy(),
		maxRunes: maxRunes,
	}
}

// Sanitize はタグを除去したプレーンテキストを返す。
func (s *textSanitizer) Sanitize(raw string) string {
	if raw == "" {
		return ""
	}

	// StrictPolicyはエスケープ済みHTMLを返すため、プロンプト用に実体参照を戻す
	text := html.UnescapeString(s.policy.Sanitize(raw))
	text = strings.Join(strings.Fields(text), " ")

	if utf8.RuneCountInString(text) > s.maxRunes {
		runes := []rune(text)
		text = string(runes[:s.maxRunes])
	}
	return text
}
