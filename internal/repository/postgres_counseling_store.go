package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/hitoshi/kotakun/internal/model"
)

// PostgresCounselingStore はPostgreSQLを使用したカウンセリングストア。
// カウンセリングデータと栄養目標はJSONB列に保存する。
type PostgresCounselingStore struct {
	db *sql.DB
}

// NewPostgresCounselingStore はPostgresCounselingStoreを生成する。
func NewPostgresCounselingStore(db *sql.DB) *PostgresCounselingStore {
	return &PostgresCounselingStore{db: db}
}

// upsertUserQuery はユーザーレコードを挿入または置き換える。
// ON CONFLICT で created_at 以外の列を更新するため、1文で原子的に書き込まれる。
const upsertUserQuery = `
	INSERT INTO users (user_id, counseling_data, nutrition_data, is_registered, created_at, updated_at)
	VALUES ($1, $2, $3, TRUE, now(), now())
	ON CONFLICT (user_id) DO UPDATE SET
		counseling_data = EXCLUDED.counseling_data,
		nutrition_data  = EXCLUDED.nutrition_data,
		is_registered   = TRUE,
		updated_at      = now()
	RETURNING user_id, is_registered, counseling_data, nutrition_data, created_at, updated_at`

// Save はカウンセリングデータと栄養目標を書き込み、保存後のレコードを返す。
func (s *PostgresCounselingStore) Save(ctx context.Context, userID string, profile model.CounselingProfile, targets model.NutritionTargets) (*model.UserRecord, error) {
	profileJSON, err := json.Marshal(profile)
	if err != nil {
		return nil, fmt.Errorf("failed to encode counseling data: %w", err)
	}
	targetsJSON, err := json.Marshal(targets)
	if err != nil {
		return nil, fmt.Errorf("failed to encode nutrition data: %w", err)
	}

	// lib/pqは[]byteをbyteaとして送るため、JSONB列には文字列で渡す
	record, err := scanUserRecord(s.db.QueryRowContext(ctx, upsertUserQuery, userID, string(profileJSON), string(targetsJSON)))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert counseling data: %w", err)
	}
	return record, nil
}

// FindByUserID は指定ユーザーのレコードを取得する。見つからない場合はnilを返す。
func (s *PostgresCounselingStore) FindByUserID(ctx context.Context, userID string) (*model.UserRecord, error) {
	record, err := scanUserRecord(s.db.QueryRowContext(ctx,
		`SELECT user_id, is_registered, counseling_data, nutrition_data, created_at, updated_at
		 FROM users WHERE user_id = $1`,
		userID,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}
	return record, nil
}

// Ping はデータベースへの接続を確認する。
func (s *PostgresCounselingStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// scanUserRecord は1行をUserRecordに変換する。
// JSONB列がNULLの場合は対応するフィールドをnilのままにする。
func scanUserRecord(row *sql.Row) (*model.UserRecord, error) {
	var (
		record                     model.UserRecord
		profileJSON, nutritionJSON []byte
	)
	if err := row.Scan(
		&record.UserID,
		&record.IsRegistered,
		&profileJSON,
		&nutritionJSON,
		&record.CreatedAt,
		&record.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if err := decodeDocuments(&record, profileJSON, nutritionJSON); err != nil {
		return nil, err
	}
	return &record, nil
}

// decodeDocuments はJSONドキュメントをUserRecordの各フィールドにデコードする。
func decodeDocuments(record *model.UserRecord, profileJSON, nutritionJSON []byte) error {
	if len(profileJSON) > 0 {
		var p model.CounselingProfile
		if err := json.Unmarshal(profileJSON, &p); err != nil {
			return fmt.Errorf("failed to decode counseling data: %w", err)
		}
		record.CounselingData = &p
	}
	if len(nutritionJSON) > 0 {
		var n model.NutritionTargets
		if err := json.Unmarshal(nutritionJSON, &n); err != nil {
			return fmt.Errorf("failed to decode nutrition data: %w", err)
		}
		record.NutritionData = &n
	}
	return nil
}

// compile-time interface check
var _ CounselingStore = (*PostgresCounselingStore)(nil)
