// Package advice はカウンセリング内容からAI健康アドバイスを生成する機能を提供する。
package advice

import (
	"strconv"
	"strings"
	"text/template"

	"github.com/hitoshi/kotakun/internal/model"
	"github.com/hitoshi/kotakun/internal/security"
)

// promptTemplate はGeminiへ送るプロンプトの雛形。
// 出力は入力のみで決まり、同じプロフィールからは同じプロンプトが得られる。
var promptTemplate = template.Must(template.New("advice").Parse(`
あなたは健康管理の専門家です。以下のユーザー情報に基づいて、個別のアドバイスを提供してください。

【ユーザー情報】
- 名前: {{.Name}}
- 年齢: {{.Age}}歳
- 性別: {{.Gender}}
- 身長: {{.Height}}cm
- 現在の体重: {{.Weight}}kg
- 目標体重: {{.TargetWeight}}kg
- BMI: {{.BMI}}
- 目標: {{.GoalType}}
- 気になる部位: {{.ConcernedAreas}}
- 活動レベル: {{.ActivityLevel}}
- 運動習慣: {{.HasExerciseHabit}}
- 睡眠時間: {{.SleepHours}}
- 食事回数: {{.MealCount}}
- 間食頻度: {{.SnackFrequency}}

【計算された栄養目標】
- 1日カロリー: {{.DailyCalories}}kcal
- タンパク質: {{.Protein}}g
- 脂質: {{.Fat}}g
- 炭水化物: {{.Carbs}}g

以下の形式でアドバイスを提供してください：

1. 【総合評価】BMIと目標に対する現在の状況
2. 【食事アドバイス】具体的な食事の取り方
3. 【運動アドバイス】効果的な運動方法
4. 【生活習慣アドバイス】睡眠や生活リズムの改善点
5. 【目標達成のコツ】モチベーション維持の方法

各項目は3-4行程度で、実践的で具体的なアドバイスを提供してください。
`))

// promptData はテンプレートに渡す値。全てサニタイズ済みの文字列。
type promptData struct {
	Name             string
	Age              string
	Gender           string
	Height           string
	Weight           string
	TargetWeight     string
	BMI              string
	GoalType         string
	ConcernedAreas   string
	ActivityLevel    string
	HasExerciseHabit string
	SleepHours       string
	MealCount        string
	SnackFrequency   string
	DailyCalories    int
	Protein          int
	Fat              int
	Carbs            int
}

// PromptBuilder はプロフィールと栄養目標からプロンプトを組み立てる。
type PromptBuilder struct {
	sanitizer security.TextSanitizerService
}

// NewPromptBuilder はPromptBuilderを生成する。
// sanitizerがnilの場合は既定の最大文字数でサニタイザーを用意する。
func NewPromptBuilder(sanitizer security.TextSanitizerService) *PromptBuilder {
	if sanitizer == nil {
		sanitizer = security.NewTextSanitizer(security.DefaultMaxFieldRunes)
	}
	return &PromptBuilder{sanitizer: sanitizer}
}

// Build はプロンプト文字列を返す。
// 利用者が入力した値はマークアップを除去してから埋め込む。
func (b *PromptBuilder) Build(p model.CounselingProfile, n model.NutritionTargets) string {
	clean := func(v model.FormValue) string {
		return b.sanitizer.Sanitize(v.String())
	}

	data := promptData{
		Name:             clean(p.Name),
		Age:              clean(p.Age),
		Gender:           clean(p.Gender),
		Height:           clean(p.Height),
		Weight:           clean(p.Weight),
		TargetWeight:     clean(p.TargetWeight),
		BMI:              strconv.FormatFloat(n.BMI, 'f', -1, 64),
		GoalType:         clean(p.GoalType),
		ConcernedAreas:   clean(p.ConcernedAreas),
		ActivityLevel:    clean(p.ActivityLevel),
		HasExerciseHabit: clean(p.HasExerciseHabit),
		SleepHours:       clean(p.SleepHours),
		MealCount:        clean(p.MealCount),
		SnackFrequency:   clean(p.SnackFrequency),
		DailyCalories:    n.DailyCalories,
		Protein:          n.Protein,
		Fat:              n.Fat,
		Carbs:            n.Carbs,
	}

	var sb strings.Builder
	// テンプレートは固定でフィールドも全て存在するため、実行エラーは起こらない
	_ = promptTemplate.Execute(&sb, data)
	return sb.String()
}

// BuildPrompt は既定のサニタイザーでプロンプトを組み立てる。
func BuildPrompt(p model.CounselingProfile, n model.NutritionTargets) string {
	return NewPromptBuilder(nil).Build(p, n)
}
