package main

import (
	"log"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"vestryapi/controllers"
	"vestryapi/dbhelper"
	"vestryapi/services"
	"vestryapi/tasks"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment")
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              os.Getenv("SENTRY_DSN"),
		Environment:      services.GetEnv("ENV", "local"),
		Release:          "vestryapi@1.0.0",
		Debug:            false,
		TracesSampleRate: 1.0,
	})
	if err != nil {
		log.Fatalf("sentry.Init: %s", err)
	}
	defer sentry.Recover()
	defer sentry.Flush(2 * time.Second)

	db := dbhelper.SetupDB()

	asynqClient, err := tasks.NewClient()
	if err != nil {
		log.Fatalf("asynq client: %s", err)
	}
	redisClient := redis.NewClient(&redis.Options{Addr: services.GetEnv("REDIS_ADDRESS", "localhost:6379")})

	avatarStore := services.NewRedisAvatarStore(redisClient)
	learner := services.NewPreferenceLearner(&services.GormPreferenceStore{DB: db})
	suggestionCache := services.NewSuggestionCacheService()

	e := controllers.SetupServer(db, avatarStore, learner, suggestionCache, asynqClient)
	e.Use(sentryecho.New(sentryecho.Options{Repanic: true}))
	e.Logger.Fatal(e.Start(":8084"))
}
