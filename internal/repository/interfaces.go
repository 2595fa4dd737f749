// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/kotakun/internal/model"
)

// CounselingStore はユーザーごとのカウンセリング情報の永続化インターフェース。
type CounselingStore interface {
	// Save はカウンセリングデータと栄養目標を1回の操作でまとめて書き込む。
	// 既存のレコードがある場合は created_at を保持したまま置き換える（後勝ち）。
	Save(ctx context.Context, userID string, profile model.CounselingProfile, targets model.NutritionTargets) (*model.UserRecord, error)

	// FindByUserID は指定ユーザーのレコードを取得する。見つからない場合はnilを返す。
	FindByUserID(ctx context.Context, userID string) (*model.UserRecord, error)

	// Ping はストアへの接続を確認する。
	Ping(ctx context.Context) error
}
