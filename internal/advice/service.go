package advice

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hitoshi/kotakun/internal/model"
	"github.com/hitoshi/kotakun/internal/repository"
)

// Generator はプロンプトからテキストを生成する外部サービスのインターフェース。
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Result はアドバイス生成の結果。
type Result struct {
	Advice        string
	NutritionData model.NutritionTargets
}

// Service はAIアドバイス生成のサービス層。
type Service struct {
	store     repository.CounselingStore
	generator Generator
	prompts   *PromptBuilder
	logger    *slog.Logger
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(store repository.CounselingStore, generator Generator, prompts *PromptBuilder, logger *slog.Logger) *Service {
	if prompts == nil {
		prompts = NewPromptBuilder(nil)
	}
	return &Service{
		store:     store,
		generator: generator,
		prompts:   prompts,
		logger:    logger,
	}
}

// Generate は保存済みのカウンセリング内容からアドバイスを生成する。
// ユーザーが存在しない場合はUSER_NOT_FOUND、プロフィールか栄養目標が欠けている場合は
// COUNSELING_NOT_FOUNDを返す。生成に失敗した場合はUPSTREAM_FAILEDを返す。
func (s *Service) Generate(ctx context.Context, userID string) (*Result, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, model.NewMissingFieldError("userId")
	}

	record, err := s.store.FindByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーデータの取得に失敗しました: %w", err)
	}
	if record == nil {
		return nil, model.NewUserNotFoundError()
	}
	if record.CounselingData == nil || record.NutritionData == nil {
		return nil, model.NewCounselingNotFoundError()
	}

	prompt := s.prompts.Build(*record.CounselingData, *record.NutritionData)

	text, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		s.logger.Error("AIアドバイスの生成に失敗しました",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return nil, model.NewUpstreamFailedError("gemini")
	}

	s.logger.Info("AIアドバイスを生成しました",
		slog.String("user_id", userID),
		slog.Int("advice_length", len([]rune(text))),
	)

	return &Result{Advice: text, NutritionData: *record.NutritionData}, nil
}
