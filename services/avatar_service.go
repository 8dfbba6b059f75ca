package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"vestryapi/models"
)

const DefaultMaxAvatarChanges = 5

var ErrAvatarNotFound = errors.New("avatar not found")

// AvatarStoreProvider is the mutation budget contract. The budget is
// advisory: each composite-on-composite try-on degrades fidelity against the
// original photo, so the tracker surfaces a soft warning instead of blocking.
type AvatarStoreProvider interface {
	Get(ctx context.Context, avatarID string) (*models.AvatarRecord, error)
	Set(ctx context.Context, avatarID string, imageURL string) error
	RecordChange(ctx context.Context, avatarID string) (int, error)
	Reset(ctx context.Context, avatarID string) error
	Status(ctx context.Context, avatarID string) (models.AvatarMutationState, error)
}

// RedisAvatarStore keeps one hash per avatar id. The first Set also pins the
// original image reference, which Reset later restores.
type RedisAvatarStore struct {
	Client     *redis.Client
	MaxChanges int
}

func NewRedisAvatarStore(client *redis.Client) *RedisAvatarStore {
	return &RedisAvatarStore{Client: client, MaxChanges: DefaultMaxAvatarChanges}
}

func avatarKey(avatarID string) string {
	return fmt.Sprintf("avatar:%s", avatarID)
}

func (s *RedisAvatarStore) Get(ctx context.Context, avatarID string) (*models.AvatarRecord, error) {
	fields, err := s.Client.HGetAll(ctx, avatarKey(avatarID)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, ErrAvatarNotFound
	}
	count, _ := strconv.Atoi(fields["mutation_count"])
	return &models.AvatarRecord{
		ImageURL:         fields["image_url"],
		OriginalImageURL: fields["original_image_url"],
		MutationCount:    count,
	}, nil
}

func (s *RedisAvatarStore) Set(ctx context.Context, avatarID string, imageURL string) error {
	key := avatarKey(avatarID)
	pipe := s.Client.TxPipeline()
	pipe.HSet(ctx, key, "image_url", imageURL)
	pipe.HSetNX(ctx, key, "original_image_url", imageURL)
	pipe.HSetNX(ctx, key, "mutation_count", 0)
	_, err := pipe.Exec(ctx)
	return err
}

// RecordChange bumps the mutation counter atomically and returns the new
// value.
func (s *RedisAvatarStore) RecordChange(ctx context.Context, avatarID string) (int, error) {
	count, err := s.Client.HIncrBy(ctx, avatarKey(avatarID), "mutation_count", 1).Result()
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

// Reset restores the original avatar reference and zeroes the counter.
func (s *RedisAvatarStore) Reset(ctx context.Context, avatarID string) error {
	record, err := s.Get(ctx, avatarID)
	if err != nil {
		return err
	}
	key := avatarKey(avatarID)
	return s.Client.HSet(ctx, key,
		"image_url", record.OriginalImageURL,
		"mutation_count", 0,
	).Err()
}

func (s *RedisAvatarStore) Status(ctx context.Context, avatarID string) (models.AvatarMutationState, error) {
	record, err := s.Get(ctx, avatarID)
	if err != nil {
		return models.AvatarMutationState{}, err
	}
	maxChanges := s.MaxChanges
	if maxChanges <= 0 {
		maxChanges = DefaultMaxAvatarChanges
	}
	return models.AvatarMutationState{
		ChangesApplied:    record.MutationCount,
		MaxChanges:        maxChanges,
		NeedsResetWarning: record.MutationCount >= maxChanges,
	}, nil
}
