// Package counseling はカウンセリングデータの登録と取得のドメインロジックを提供する。
package counseling

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hitoshi/kotakun/internal/model"
	"github.com/hitoshi/kotakun/internal/nutrition"
	"github.com/hitoshi/kotakun/internal/repository"
)

// SubmissionRecorder はカウンセリング登録件数の記録インターフェース。
type SubmissionRecorder interface {
	RecordSubmission()
}

// Service はカウンセリングのサービス層。
// 登録時に栄養目標を算出し、プロフィールと同じ書き込みで保存する。
type Service struct {
	store    repository.CounselingStore
	recorder SubmissionRecorder
	logger   *slog.Logger
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(store repository.CounselingStore, recorder SubmissionRecorder, logger *slog.Logger) *Service {
	return &Service{
		store:    store,
		recorder: recorder,
		logger:   logger,
	}
}

// Submit はカウンセリングデータを検証・保存し、算出した栄養目標を返す。
// profileがnilの場合はMISSING_FIELDエラーを返す。
func (s *Service) Submit(ctx context.Context, userID string, profile *model.CounselingProfile) (*model.NutritionTargets, error) {
	var missing []string
	if strings.TrimSpace(userID) == "" {
		missing = append(missing, "userId")
	}
	if profile == nil {
		missing = append(missing, "counselingData")
	}
	if len(missing) > 0 {
		return nil, model.NewMissingFieldError(missing...)
	}

	targets := nutrition.Calculate(*profile)

	if _, err := s.store.Save(ctx, userID, *profile, targets); err != nil {
		s.logger.Error("カウンセリングデータの保存に失敗しました",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("カウンセリングデータの保存に失敗しました: %w", err)
	}

	if s.recorder != nil {
		s.recorder.RecordSubmission()
	}
	s.logger.Info("カウンセリングデータを保存しました",
		slog.String("user_id", userID),
		slog.Int("daily_calories", targets.DailyCalories),
	)

	return &targets, nil
}

// Get は指定ユーザーのレコードを返す。未登録の場合はnilを返す。
func (s *Service) Get(ctx context.Context, userID string) (*model.UserRecord, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, model.NewMissingFieldError("userId")
	}

	record, err := s.store.FindByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーデータの取得に失敗しました: %w", err)
	}
	return record, nil
}
