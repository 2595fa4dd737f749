package line

import (
	"fmt"
	"strings"

	"github.com/hitoshi/kotakun/internal/model"
)

// PostbackStartCounseling はカウンセリング開始ボタンのポストバックデータ。
const PostbackStartCounseling = "action=start_counseling"

const (
	brandColor = "#1DB446"
	subColor   = "#666666"
)

// Templates はユーザーへ送るメッセージの雛形を組み立てる。
// LIFFアプリのURLを埋め込むため、URLを保持する。
type Templates struct {
	liffURL string
}

// NewTemplates はTemplatesを生成する。末尾のスラッシュは取り除く。
func NewTemplates(liffURL string) *Templates {
	return &Templates{liffURL: strings.TrimRight(liffURL, "/")}
}

// CounselingURL はカウンセリングページのURLを返す。
func (t *Templates) CounselingURL() string {
	return t.liffURL + "/counseling"
}

// MyPageURL はマイページのURLを返す。
func (t *Templates) MyPageURL() string {
	return t.liffURL + "?mode=mypage"
}

// Welcome は友だち追加時のあいさつメッセージ。
// カウンセリング開始のポストバックボタンを含む。
func (t *Templates) Welcome() FlexMessage {
	return NewFlexMessage("カウンセリングを開始しましょう！", Bubble{
		Type: "bubble",
		Body: NewBox("vertical",
			title("こんにちは！"),
			paragraph("Kota-kun健康管理アプリへようこそ！"),
			Text{
				Type:   "text",
				Text:   "まずは簡単なカウンセリングを行って、あなたに最適な健康プランを作成しましょう。",
				Wrap:   true,
				Margin: "md",
				Size:   "sm",
				Color:  subColor,
			},
		),
		Footer: NewBox("vertical", Button{
			Type:  "button",
			Style: "primary",
			Color: brandColor,
			Action: Action{
				Type:  "postback",
				Label: "カウンセリングを開始",
				Data:  PostbackStartCounseling,
			},
		}),
	})
}

// OpenApp はLIFFアプリを開くボタン付きメッセージ。
// テキストメッセージへの既定の返信として使う。
func (t *Templates) OpenApp() FlexMessage {
	return NewFlexMessage("LIFFアプリを開く", Bubble{
		Type: "bubble",
		Body: NewBox("vertical",
			title("Kota-kun LIFF App"),
			paragraph("健康管理アプリを開いてみましょう！"),
		),
		Footer: NewBox("vertical", uriButton("アプリを開く", t.liffURL)),
	})
}

// CounselingStart はカウンセリングページへ誘導するメッセージ。
func (t *Templates) CounselingStart() FlexMessage {
	return NewFlexMessage("カウンセリングページを開く", Bubble{
		Type: "bubble",
		Body: NewBox("vertical",
			title("カウンセリングを開始します"),
			paragraph("以下のボタンを押してカウンセリングページを開いてください。"),
		),
		Footer: NewBox("vertical", uriButton("カウンセリングページを開く", t.CounselingURL())),
	})
}

// MyPage はマイページへ誘導するメッセージ。
func (t *Templates) MyPage() FlexMessage {
	return NewFlexMessage("マイページを開く", Bubble{
		Type: "bubble",
		Body: NewBox("vertical",
			title("マイページ"),
			paragraph("栄養目標やアドバイスはマイページから確認できます。"),
		),
		Footer: NewBox("vertical", uriButton("マイページを開く", t.MyPageURL())),
	})
}

// ImageReceived は画像受信時の仮の応答。画像解析は行わない。
func (t *Templates) ImageReceived() TextMessage {
	return NewTextMessage("画像を受け取りました！画像の解析機能は現在準備中です。")
}

// PostbackEcho は未知のポストバックデータをそのまま返す応答。
func (t *Templates) PostbackEcho(data string) TextMessage {
	return NewTextMessage(fmt.Sprintf("ポストバックを受信しました: %s", data))
}

// RelayText はLIFFアプリから送られたメッセージの転送用テキスト。
func (t *Templates) RelayText(message string) TextMessage {
	return NewTextMessage(fmt.Sprintf("LIFFアプリから: %s", message))
}

// AIAdvice はAIアドバイスと栄養目標をまとめたメッセージ。
func (t *Templates) AIAdvice(advice string, n model.NutritionTargets) FlexMessage {
	return NewFlexMessage("AIアドバイス", Bubble{
		Type: "bubble",
		Header: NewBox("vertical", Text{
			Type:   "text",
			Text:   "🤖 AI健康アドバイス",
			Weight: "bold",
			Size:   "lg",
			Color:  brandColor,
		}),
		Body: NewBox("vertical",
			Text{Type: "text", Text: "あなたに最適な健康プランが完成しました！", Wrap: true, Margin: "md", Color: subColor},
			Separator{Type: "separator", Margin: "md"},
			Text{Type: "text", Text: "【栄養目標】", Weight: "bold", Margin: "md"},
			&Box{
				Type:   "box",
				Layout: "vertical",
				Margin: "sm",
				Contents: []Component{
					nutritionRow("カロリー", fmt.Sprintf("%dkcal", n.DailyCalories)),
					nutritionRow("タンパク質", fmt.Sprintf("%dg", n.Protein)),
					nutritionRow("脂質", fmt.Sprintf("%dg", n.Fat)),
					nutritionRow("炭水化物", fmt.Sprintf("%dg", n.Carbs)),
				},
			},
			Separator{Type: "separator", Margin: "md"},
			Text{Type: "text", Text: "【AIアドバイス】", Weight: "bold", Margin: "md"},
			Text{Type: "text", Text: advice, Wrap: true, Margin: "sm", Size: "sm", Color: subColor},
		),
		Footer: NewBox("vertical", uriButton("マイページを開く", t.MyPageURL())),
	})
}

func title(s string) Text {
	return Text{Type: "text", Text: s, Weight: "bold", Size: "xl", Color: brandColor}
}

func paragraph(s string) Text {
	return Text{Type: "text", Text: s, Wrap: true, Margin: "md"}
}

func uriButton(label, uri string) Button {
	return Button{
		Type:   "button",
		Style:  "primary",
		Color:  brandColor,
		Action: Action{Type: "uri", Label: label, URI: uri},
	}
}

func nutritionRow(label, value string) *Box {
	zero := 0
	return NewBox("baseline",
		Text{Type: "text", Text: label, Size: "sm", Color: subColor, Flex: &zero},
		Text{Type: "text", Text: value, Size: "sm", Color: brandColor, Weight: "bold", Align: "end"},
	)
}
