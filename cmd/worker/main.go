package main

import (
	"context"
	"log"
	"os"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"vestryapi/dbhelper"
	"vestryapi/services"
	"vestryapi/tasks"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment")
	}

	srv := asynq.NewServer(
		asynq.RedisClientOpt{Addr: os.Getenv("ASYNC_BROKER_ADDRESS")},
		asynq.Config{Concurrency: 10, Queues: map[string]int{
			"generate": 7,
		}},
	)

	db := dbhelper.SetupDB()
	redisClient := redis.NewClient(&redis.Options{Addr: services.GetEnv("REDIS_ADDRESS", "localhost:6379")})

	generator := services.NewGarmentImageService()
	tryOn := services.NewTryOnService()
	classifier := services.KeywordCategoryClassifier{}
	avatarStore := services.NewRedisAvatarStore(redisClient)
	learner := services.NewPreferenceLearner(&services.GormPreferenceStore{DB: db})

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeOutfitGeneration, func(ctx context.Context, t *asynq.Task) error {
		return tasks.HandleOutfitGenerationTask(ctx, t, db, generator, learner)
	})
	mux.HandleFunc(tasks.TypeTryOnApply, func(ctx context.Context, t *asynq.Task) error {
		return tasks.HandleTryOnApplyTask(ctx, t, db, tryOn, classifier, avatarStore)
	})

	if err := srv.Run(mux); err != nil {
		log.Fatal(err)
	}
}
