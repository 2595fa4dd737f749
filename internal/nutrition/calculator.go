// Package nutrition はカウンセリング内容から1日の栄養目標を算出する。
//
// 基礎代謝はハリス・ベネディクト式で求め、活動レベル係数を掛けて
// 1日の摂取カロリーとPFCバランス（P:20% F:25% C:55%）を決定する。
// 入力はフォームの文字列であり、解釈できない値はすべて既定値に置き換えるため
// Calculateは失敗しない。
package nutrition

import (
	"math"
	"strconv"
	"strings"

	"github.com/hitoshi/kotakun/internal/model"
)

// 入力が欠落・不正な場合の既定値。
const (
	DefaultAge    = 25
	DefaultHeight = 170.0 // cm
	DefaultWeight = 65.0  // kg
)

// 入力として受け付ける範囲。範囲外の値は解釈できない値と同じく既定値に置き換える。
const (
	MaxAge    = 150
	MinHeight = 50.0  // cm
	MaxHeight = 300.0 // cm
	MinWeight = 10.0  // kg
	MaxWeight = 500.0 // kg
)

// PFCの配分とエネルギー換算係数。
const (
	proteinRatio = 0.20
	fatRatio     = 0.25
	carbsRatio   = 0.55

	kcalPerGramProtein = 4.0
	kcalPerGramFat     = 9.0
	kcalPerGramCarbs   = 4.0
)

// Gender はBMR計算式の選択に使う性別。
type Gender int

const (
	GenderMale Gender = iota
	GenderFemale
)

// ActivityLevel は活動レベルの区分。
type ActivityLevel string

const (
	ActivitySedentary  ActivityLevel = "sedentary"
	ActivityLight      ActivityLevel = "light"
	ActivityModerate   ActivityLevel = "moderate"
	ActivityActive     ActivityLevel = "active"
	ActivityVeryActive ActivityLevel = "very active"
)

// activityFactors は活動レベルごとの係数表。補間は行わない。
var activityFactors = map[ActivityLevel]float64{
	ActivitySedentary:  1.2,
	ActivityLight:      1.375,
	ActivityModerate:   1.55,
	ActivityActive:     1.725,
	ActivityVeryActive: 1.9,
}

// activityAliases はフォームの表示ラベルと表記揺れを区分に対応付ける。
var activityAliases = map[string]ActivityLevel{
	"sedentary":   ActivitySedentary,
	"light":       ActivityLight,
	"moderate":    ActivityModerate,
	"active":      ActivityActive,
	"very active": ActivityVeryActive,
	"very_active": ActivityVeryActive,
	"very-active": ActivityVeryActive,
	"座りがち":        ActivitySedentary,
	"軽い活動":        ActivityLight,
	"中程度の活動":      ActivityModerate,
	"活発":          ActivityActive,
	"非常に活発":       ActivityVeryActive,
}

// ParseActivityLevel はフォームの値を活動レベル区分に変換する。
// 認識できない値はActivityModerateとして扱う。
func ParseActivityLevel(v string) ActivityLevel {
	key := strings.ToLower(strings.TrimSpace(v))
	if level, ok := activityAliases[key]; ok {
		return level
	}
	return ActivityModerate
}

// ActivityFactor は活動レベルの値に対応する係数を返す。
func ActivityFactor(v string) float64 {
	return activityFactors[ParseActivityLevel(v)]
}

// ParseGender はフォームの性別を計算式用の区分に変換する。
// 未入力はフォームの初期選択である男性、それ以外の値は女性の式を用いる。
func ParseGender(v string) Gender {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "male", "男性":
		return GenderMale
	default:
		return GenderFemale
	}
}

// BMR はハリス・ベネディクト式による基礎代謝量（kcal、丸め前）を返す。
func BMR(gender Gender, weight, height float64, age int) float64 {
	a := float64(age)
	if gender == GenderMale {
		return 88.362 + 13.397*weight + 4.799*height - 5.677*a
	}
	return 447.593 + 9.247*weight + 3.098*height - 4.330*a
}

// Calculate はカウンセリング内容から栄養目標を算出する。
// 純粋関数であり、同じ入力には常に同じ結果を返す。
func Calculate(p model.CounselingProfile) model.NutritionTargets {
	age := parseAge(p.Age.String())
	height := parseInRange(p.Height.String(), MinHeight, MaxHeight, DefaultHeight)
	weight := parseInRange(p.Weight.String(), MinWeight, MaxWeight, DefaultWeight)

	bmr := BMR(ParseGender(p.Gender.String()), weight, height, age)
	daily := math.Round(bmr * ActivityFactor(p.ActivityLevel.String()))

	heightM := height / 100
	bmi := math.Round(weight/(heightM*heightM)*10) / 10

	return model.NutritionTargets{
		DailyCalories: int(daily),
		Protein:       int(math.Round(daily * proteinRatio / kcalPerGramProtein)),
		Fat:           int(math.Round(daily * fatRatio / kcalPerGramFat)),
		Carbs:         int(math.Round(daily * carbsRatio / kcalPerGramCarbs)),
		BMI:           bmi,
		BMR:           int(math.Round(bmr)),
	}
}

// parseAge は先頭の整数部分を年齢として読み取る（"30歳" は30）。
// 読み取れない場合や1からMaxAgeの範囲外の場合はDefaultAgeを返す。
func parseAge(v string) int {
	s := strings.TrimSpace(v)
	end := 0
	for end < len(s) && (s[end] >= '0' && s[end] <= '9' || end == 0 && (s[end] == '-' || s[end] == '+')) {
		end++
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil || n <= 0 || n > MaxAge {
		return DefaultAge
	}
	return n
}

// parseInRange は値を実数として読み取る。読み取れない場合や[lo, hi]の範囲外の場合はdefを返す。
func parseInRange(v string, lo, hi, def float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || math.IsNaN(f) || f < lo || f > hi {
		return def
	}
	return f
}
