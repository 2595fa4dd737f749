// Package model はドメインモデルを定義する。
package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// FormValue はカウンセリングフォームから送られる1項目の値を表す。
// フォームは常に文字列を送るが、数値で送られた場合も文字列として保持する。
// JSONへは常に文字列として出力するため、保存した値をそのまま返せる。
type FormValue string

// UnmarshalJSON は文字列・数値・真偽値・nullをFormValueとして受け付ける。
func (v *FormValue) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*v = ""
		return nil
	}

	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*v = FormValue(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err == nil {
		*v = FormValue(n.String())
		return nil
	}

	var b bool
	if err := json.Unmarshal(trimmed, &b); err == nil {
		*v = FormValue(fmt.Sprintf("%t", b))
		return nil
	}

	return fmt.Errorf("unsupported form value: %s", string(trimmed))
}

// String は値をトリムせずにそのまま返す。
func (v FormValue) String() string {
	return string(v)
}

// IsBlank は値が空白のみで構成されているかを返す。
func (v FormValue) IsBlank() bool {
	return strings.TrimSpace(string(v)) == ""
}

// CounselingProfile はフォームウィザードで入力されたカウンセリング内容を表す。
// 提出したユーザーが所有し、再提出でのみ上書きされる。
type CounselingProfile struct {
	Name                FormValue `json:"name"`
	Age                 FormValue `json:"age"`
	Gender              FormValue `json:"gender"`
	Height              FormValue `json:"height"`
	Weight              FormValue `json:"weight"`
	TargetWeight        FormValue `json:"targetWeight"`
	TargetDate          FormValue `json:"targetDate"`
	SleepHours          FormValue `json:"sleepHours"`
	ActivityLevel       FormValue `json:"activityLevel"`
	HasExerciseHabit    FormValue `json:"hasExerciseHabit"`
	ExerciseFrequency   FormValue `json:"exerciseFrequency"`
	MealCount           FormValue `json:"mealCount"`
	SnackFrequency      FormValue `json:"snackFrequency"`
	DrinkFrequency      FormValue `json:"drinkFrequency"`
	ConcernedAreas      FormValue `json:"concernedAreas"`
	GoalType            FormValue `json:"goalType"`
	OtherConcernedAreas FormValue `json:"otherConcernedAreas"`
	OtherGoalType       FormValue `json:"otherGoalType"`
}

// NutritionTargets はカウンセリング内容から算出した1日の栄養目標。
// プロフィールの提出ごとに再計算され、単独で編集されることはない。
type NutritionTargets struct {
	DailyCalories int     `json:"dailyCalories"` // kcal
	Protein       int     `json:"protein"`       // g
	Fat           int     `json:"fat"`           // g
	Carbs         int     `json:"carbs"`         // g
	BMI           float64 `json:"bmi"`           // 小数第1位まで
	BMR           int     `json:"bmr"`           // kcal
}

// UserRecord はユーザーIDをキーとして保存されるドキュメント。
// CounselingDataとNutritionDataは常に同一の書き込みで更新される。
type UserRecord struct {
	UserID         string             `json:"userId"`
	IsRegistered   bool               `json:"isRegistered"`
	CounselingData *CounselingProfile `json:"counselingData"`
	NutritionData  *NutritionTargets  `json:"nutritionData"`
	CreatedAt      time.Time          `json:"createdAt"`
	UpdatedAt      time.Time          `json:"updatedAt"`
}
