package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/hitoshi/kotakun/internal/model"
)

// RedisKeyPrefix はユーザーレコードのキー接頭辞。
const RedisKeyPrefix = "kotakun:user:"

// redisCommands はRedisCounselingStoreが使用するコマンドの集合。
// *goredis.Client が満たす。
type redisCommands interface {
	Get(ctx context.Context, key string) *goredis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *goredis.StatusCmd
	Ping(ctx context.Context) *goredis.StatusCmd
}

// RedisCounselingStore はRedisを使用したカウンセリングストア。
// ユーザーごとに1つのJSONドキュメントをSETで丸ごと書き込むため、
// カウンセリングデータと栄養目標は常に同時に更新される。
type RedisCounselingStore struct {
	rdb redisCommands
	now func() time.Time
}

// NewRedisCounselingStore はRedisCounselingStoreを生成する。
func NewRedisCounselingStore(rdb redisCommands) *RedisCounselingStore {
	return &RedisCounselingStore{rdb: rdb, now: time.Now}
}

// NewRedisClient はREDIS_URL形式の接続文字列からクライアントを生成し、疎通を確認する。
func NewRedisClient(ctx context.Context, redisURL string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	opts.DialTimeout = 5 * time.Second

	rdb := goredis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

func redisKey(userID string) string {
	return RedisKeyPrefix + userID
}

// Save はカウンセリングデータと栄養目標を書き込み、保存後のレコードを返す。
// 既存レコードのcreatedAtは引き継ぐ。
func (s *RedisCounselingStore) Save(ctx context.Context, userID string, profile model.CounselingProfile, targets model.NutritionTargets) (*model.UserRecord, error) {
	existing, err := s.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	record := &model.UserRecord{
		UserID:         userID,
		IsRegistered:   true,
		CounselingData: &profile,
		NutritionData:  &targets,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if existing != nil && !existing.CreatedAt.IsZero() {
		record.CreatedAt = existing.CreatedAt
	}

	doc, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("failed to encode user record: %w", err)
	}
	if err := s.rdb.Set(ctx, redisKey(userID), doc, 0).Err(); err != nil {
		return nil, fmt.Errorf("failed to save user record: %w", err)
	}
	return record, nil
}

// FindByUserID は指定ユーザーのレコードを取得する。見つからない場合はnilを返す。
func (s *RedisCounselingStore) FindByUserID(ctx context.Context, userID string) (*model.UserRecord, error) {
	raw, err := s.rdb.Get(ctx, redisKey(userID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}

	var record model.UserRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("failed to decode user record: %w", err)
	}
	return &record, nil
}

// Ping はRedisへの接続を確認する。
func (s *RedisCounselingStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// compile-time interface check
var (
	_ CounselingStore = (*RedisCounselingStore)(nil)
	_ redisCommands   = (*goredis.Client)(nil)
)
