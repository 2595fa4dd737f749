package nutrition

import (
	"encoding/json"
	"math"
	"strconv"
	"testing"

	"github.com/hitoshi/kotakun/internal/model"
)

func profile(age, gender, height, weight, activity string) model.CounselingProfile {
	return model.CounselingProfile{
		Age:           model.FormValue(age),
		Gender:        model.FormValue(gender),
		Height:        model.FormValue(height),
		Weight:        model.FormValue(weight),
		ActivityLevel: model.FormValue(activity),
	}
}

func TestCalculate_KnownProfiles(t *testing.T) {
	tests := []struct {
		name string
		in   model.CounselingProfile
		want model.NutritionTargets
	}{
		{
			name: "男性30歳・中程度",
			in:   profile("30", "male", "170", "65", "moderate"),
			want: model.NutritionTargets{DailyCalories: 2487, Protein: 124, Fat: 69, Carbs: 342, BMI: 22.5, BMR: 1605},
		},
		{
			name: "女性28歳・軽い活動",
			in:   profile("28", "female", "160", "55", "light"),
			want: model.NutritionTargets{DailyCalories: 1830, Protein: 92, Fat: 51, Carbs: 252, BMI: 21.5, BMR: 1331},
		},
		{
			name: "男性40歳・非常に活発（フォームラベル）",
			in:   profile("40", "男性", "180", "80", "非常に活発"),
			want: model.NutritionTargets{DailyCalories: 3414, Protein: 171, Fat: 95, Carbs: 469, BMI: 24.7, BMR: 1797},
		},
		{
			name: "女性50歳・座りがち（フォームラベル）",
			in:   profile("50", "女性", "155", "60", "座りがち"),
			want: model.NutritionTargets{DailyCalories: 1519, Protein: 76, Fat: 42, Carbs: 209, BMI: 25.0, BMR: 1266},
		},
		{
			name: "男性22歳・活発",
			in:   profile("22", "male", "175", "70", "active"),
			want: model.NutritionTargets{DailyCalories: 3003, Protein: 150, Fat: 83, Carbs: 413, BMI: 22.9, BMR: 1741},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Calculate(tt.in)
			if got != tt.want {
				t.Errorf("Calculate() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestCalculate_EmptyProfileUsesDefaults(t *testing.T) {
	got := Calculate(model.CounselingProfile{})

	// 男性・25歳・170cm・65kg・中程度の活動と同じ結果になる
	want := Calculate(profile("25", "male", "170", "65", "moderate"))
	if got != want {
		t.Errorf("Calculate(empty) = %+v, want %+v", got, want)
	}
	if got.BMR != 1633 || got.DailyCalories != 2531 {
		t.Errorf("BMR/DailyCalories = %d/%d, want 1633/2531", got.BMR, got.DailyCalories)
	}
}

func TestCalculate_InvalidNumbersFallBackToDefaults(t *testing.T) {
	tests := []struct {
		name string
		in   model.CounselingProfile
	}{
		{"文字列", profile("abc", "male", "tall", "heavy", "moderate")},
		{"ゼロ", profile("0", "male", "0", "0", "moderate")},
		{"負数", profile("-3", "male", "-170", "-65", "moderate")},
		{"空白", profile("  ", "male", " ", " ", "moderate")},
		{"極小", profile("30", "male", "1e-200", "1e-200", "moderate")},
		{"極大", profile("1000", "male", "1e308", "1e308", "moderate")},
		{"無限大", profile("30", "male", "Inf", "+Inf", "moderate")},
		{"NaN", profile("30", "male", "NaN", "NaN", "moderate")},
		{"範囲外", profile("151", "male", "49.9", "500.1", "moderate")},
	}

	want := Calculate(profile("25", "male", "170", "65", "moderate"))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := tt.in
			// 年齢が有効な行は年齢だけ既定値と異なるので揃える
			if parseAge(in.Age.String()) != DefaultAge {
				in.Age = "25"
			}
			if got := Calculate(in); got != want {
				t.Errorf("Calculate() = %+v, want defaults %+v", got, want)
			}
		})
	}
}

func TestCalculate_AgeUsesLeadingInteger(t *testing.T) {
	a := Calculate(profile("30歳", "male", "170", "65", "moderate"))
	b := Calculate(profile("30", "male", "170", "65", "moderate"))
	c := Calculate(profile("30.9", "male", "170", "65", "moderate"))
	if a != b || c != b {
		t.Errorf("leading-integer ages differ: %+v / %+v / %+v", a, b, c)
	}
}

func TestCalculate_UnknownActivityMatchesModerate(t *testing.T) {
	moderate := Calculate(profile("35", "female", "165", "58", "moderate"))
	for _, level := range []string{"", "unknown", "ほどほど", "VERY LAZY"} {
		if got := Calculate(profile("35", "female", "165", "58", level)); got != moderate {
			t.Errorf("activity %q: got %+v, want %+v", level, got, moderate)
		}
	}
}

func TestCalculate_NonMaleGenderUsesFemaleFormula(t *testing.T) {
	female := Calculate(profile("35", "female", "165", "58", "light"))
	for _, g := range []string{"女性", "other", "F"} {
		if got := Calculate(profile("35", g, "165", "58", "light")); got != female {
			t.Errorf("gender %q: got %+v, want %+v", g, got, female)
		}
	}
	if got := Calculate(profile("35", " Male ", "165", "58", "light")); got == female {
		t.Error("\" Male \" should use the male formula")
	}
}

func TestCalculate_Idempotent(t *testing.T) {
	p := profile("41", "female", "158.5", "61.2", "中程度の活動")
	first := Calculate(p)
	for i := 0; i < 10; i++ {
		if got := Calculate(p); got != first {
			t.Fatalf("run %d: got %+v, want %+v", i, got, first)
		}
	}
}

// PFCの合計エネルギーは各項目の丸め誤差の範囲でdailyCaloriesに一致する。
// 1項目あたり最大0.5gの誤差なので、合計誤差は 0.5*4 + 0.5*9 + 0.5*4 = 8.5kcal 以内。
func TestCalculate_MacrosMatchDailyCalories(t *testing.T) {
	genders := []string{"male", "female"}
	levels := []string{"sedentary", "light", "moderate", "active", "very active"}

	for _, g := range genders {
		for _, level := range levels {
			for age := 18; age <= 80; age += 7 {
				for height := 145; height <= 195; height += 10 {
					for weight := 40; weight <= 120; weight += 15 {
						p := profile(strconv.Itoa(age), g, strconv.Itoa(height), strconv.Itoa(weight), level)
						got := Calculate(p)
						sum := got.Protein*4 + got.Fat*9 + got.Carbs*4
						if diff := math.Abs(float64(sum - got.DailyCalories)); diff > 8.5 {
							t.Fatalf("%+v: macros %d kcal vs daily %d kcal", p, sum, got.DailyCalories)
						}
					}
				}
			}
		}
	}
}

func TestCalculate_DailyCaloriesIsRoundedBMRTimesFactor(t *testing.T) {
	for level, factor := range activityFactors {
		p := profile("33", "male", "172", "68", string(level))
		got := Calculate(p)
		raw := BMR(GenderMale, 68, 172, 33)
		if want := int(math.Round(raw * factor)); got.DailyCalories != want {
			t.Errorf("%s: DailyCalories = %d, want %d", level, got.DailyCalories, want)
		}
	}
}

func TestActivityFactor_Table(t *testing.T) {
	tests := map[string]float64{
		"sedentary":   1.2,
		"light":       1.375,
		"moderate":    1.55,
		"active":      1.725,
		"very active": 1.9,
		"very_active": 1.9,
		"Light":       1.375,
		"軽い活動":        1.375,
		"活発":          1.725,
		"unknown":     1.55,
	}
	for in, want := range tests {
		if got := ActivityFactor(in); got != want {
			t.Errorf("ActivityFactor(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestCalculate_BoundaryInputsAreFiniteAndMarshalable(t *testing.T) {
	ages := []string{"1", "150"}
	heights := []string{"50", "300"}
	weights := []string{"10", "500"}

	for _, g := range []string{"male", "female"} {
		for _, age := range ages {
			for _, h := range heights {
				for _, w := range weights {
					p := profile(age, g, h, w, "very active")
					got := Calculate(p)
					if math.IsInf(got.BMI, 0) || math.IsNaN(got.BMI) {
						t.Fatalf("%+v: BMI = %v", p, got.BMI)
					}
					if got.DailyCalories == math.MinInt || got.DailyCalories == math.MaxInt {
						t.Fatalf("%+v: DailyCalories overflowed: %d", p, got.DailyCalories)
					}
					if _, err := json.Marshal(got); err != nil {
						t.Fatalf("%+v: json.Marshal() error = %v", p, err)
					}
				}
			}
		}
	}
}
