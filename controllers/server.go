package controllers

import (
	"net/http"

	"github.com/go-playground/validator"
	"github.com/hibiken/asynq"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"gorm.io/gorm"

	"vestryapi/models"
	"vestryapi/services"
)

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

func SetupServer(
	db *gorm.DB,
	avatarStore services.AvatarStoreProvider,
	learner *services.PreferenceLearner,
	suggestionCache *services.SuggestionCacheService,
	asynqClient *asynq.Client,
) *echo.Echo {
	e := echo.New()

	v := validator.New()
	v.RegisterValidation("style", models.ValidateStyle)
	e.Validator = &CustomValidator{validator: v}

	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("__db", db)
			c.Set("__asynqclient", asynqClient)
			return next(c)
		}
	})

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
	}))
	e.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(20)))

	outfitsController := OutfitsController{Composer: &services.PromptComposer{}, SuggestionCache: suggestionCache}
	outfitsGroup := e.Group("/outfits")
	outfitsController.OutfitRoutes(outfitsGroup)
	e.GET("/suggestions", outfitsController.GetSuggestions)

	avatarsController := AvatarsController{Store: avatarStore}
	avatarsGroup := e.Group("/avatars")
	avatarsController.AvatarRoutes(avatarsGroup)

	preferencesController := PreferencesController{Learner: learner}
	preferencesGroup := e.Group("/preferences")
	preferencesController.PreferenceRoutes(preferencesGroup)

	return e
}
