package line

// Message はLINEへ送信するメッセージオブジェクト。
// TextMessage と FlexMessage が実装する。
type Message interface {
	MessageType() string
}

// TextMessage はテキストメッセージ。
type TextMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// MessageType はメッセージ種別を返す。
func (m TextMessage) MessageType() string { return m.Type }

// NewTextMessage はTextMessageを生成する。
func NewTextMessage(text string) TextMessage {
	return TextMessage{Type: "text", Text: text}
}

// FlexMessage はバブル1つで構成されるFlexメッセージ。
type FlexMessage struct {
	Type     string `json:"type"`
	AltText  string `json:"altText"`
	Contents Bubble `json:"contents"`
}

// MessageType はメッセージ種別を返す。
func (m FlexMessage) MessageType() string { return m.Type }

// NewFlexMessage はFlexMessageを生成する。
func NewFlexMessage(altText string, bubble Bubble) FlexMessage {
	return FlexMessage{Type: "flex", AltText: altText, Contents: bubble}
}

// Bubble はFlexメッセージのバブルコンテナ。
type Bubble struct {
	Type   string `json:"type"`
	Header *Box   `json:"header,omitempty"`
	Body   *Box   `json:"body,omitempty"`
	Footer *Box   `json:"footer,omitempty"`
}

// Component はBox内に配置できる要素。
type Component interface {
	componentType() string
}

// Box はレイアウト用のコンテナ要素。
type Box struct {
	Type     string      `json:"type"`
	Layout   string      `json:"layout"`
	Margin   string      `json:"margin,omitempty"`
	Contents []Component `json:"contents"`
}

func (b Box) componentType() string { return b.Type }

// NewBox はBoxを生成する。
func NewBox(layout string, contents ...Component) *Box {
	return &Box{Type: "box", Layout: layout, Contents: contents}
}

// Text はテキスト要素。
type Text struct {
	Type   string `json:"type"`
	Text   string `json:"text"`
	Weight string `json:"weight,omitempty"`
	Size   string `json:"size,omitempty"`
	Color  string `json:"color,omitempty"`
	Margin string `json:"margin,omitempty"`
	Align  string `json:"align,omitempty"`
	Wrap   bool   `json:"wrap,omitempty"`
	Flex   *int   `json:"flex,omitempty"`
}

func (t Text) componentType() string { return t.Type }

// Separator は区切り線要素。
type Separator struct {
	Type   string `json:"type"`
	Margin string `json:"margin,omitempty"`
}

func (s Separator) componentType() string { return s.Type }

// Button はアクション付きのボタン要素。
type Button struct {
	Type   string `json:"type"`
	Style  string `json:"style,omitempty"`
	Color  string `json:"color,omitempty"`
	Action Action `json:"action"`
}

func (b Button) componentType() string { return b.Type }

// Action はボタン押下時の動作。
// Typeが"uri"の場合はURI、"postback"の場合はDataを使用する。
type Action struct {
	Type  string `json:"type"`
	Label string `json:"label"`
	URI   string `json:"uri,omitempty"`
	Data  string `json:"data,omitempty"`
}
