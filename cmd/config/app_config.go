package config

import (
	"Foodgram-Backend/internal/api/handlers"
	"Foodgram-Backend/internal/api/routes"
	"Foodgram-Backend/internal/middleware"
	"Foodgram-Backend/internal/utils"
	"Foodgram-Backend/internal/utils/storage"
	"Foodgram-Backend/pkg/ingredient"
	"Foodgram-Backend/pkg/jwt"
	"Foodgram-Backend/pkg/recipe"
	"Foodgram-Backend/pkg/shopping"
	"Foodgram-Backend/pkg/subscription"
	"Foodgram-Backend/pkg/tag"
	"Foodgram-Backend/pkg/user"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"gorm.io/gorm"
)

func NewApp(db *gorm.DB) (*fiber.App, error) {
	utils.InitValidator()
	app := fiber.New(fiber.Config{
		EnablePrintRoutes: true,
	})
	middlewares := middleware.NewMiddleware()
	validator := utils.Validate

	// setting up logging and limiter
	err := os.MkdirAll("./logs", os.ModePerm)
	if err != nil {
		log.Fatalf("error creating logs directory: %v", err)
	}
	file, err := os.OpenFile(
		"./logs/app.log",
		os.O_RDWR|os.O_CREATE|os.O_APPEND,
		0666,
	)
	if err != nil {
		log.Fatalf("error opening file: %v", err)
	}
	app.Use(logger.New(logger.Config{
		TimeFormat: "2006-01-02 15:04:05",
		Output:     file,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        10,
		Expiration: 1 * time.Second,
	}))

	// utils
	s3 := storage.NewAwsS3()

	// Repository
	userRepository := user.NewUserRepository(db)
	subscriptionRepository := subscription.NewSubscriptionRepository(db)
	recipeRepository := recipe.NewRecipeRepository(db)
	shoppingRepository := shopping.NewShoppingRepository(db)
	tagRepository := tag.NewTagRepository(db)
	ingredientRepository := ingredient.NewIngredientRepository(db)

	// Service
	jwtService := jwt.NewJWTService()
	userService := user.NewUserService(userRepository, subscriptionRepository, jwtService)
	subscriptionService := subscription.NewSubscriptionService(subscriptionRepository)
	recipeService := recipe.NewRecipeService(recipeRepository, subscriptionRepository, s3)
	shoppingService := shopping.NewShoppingService(shoppingRepository, userRepository)
	tagService := tag.NewTagService(tagRepository)
	ingredientService := ingredient.NewIngredientService(ingredientRepository)

	// Handler
	userHandler := handlers.NewUserHandler(userService, validator)
	subscriptionHandler := handlers.NewSubscriptionHandler(subscriptionService)
	recipeHandler := handlers.NewRecipeHandler(recipeService, validator)
	shoppingHandler := handlers.NewShoppingHandler(shoppingService)
	tagHandler := handlers.NewTagHandler(tagService)
	ingredientHandler := handlers.NewIngredientHandler(ingredientService)

	// routes
	routesConfig := routes.Config{
		App:                 app,
		UserHandler:         userHandler,
		RecipeHandler:       recipeHandler,
		TagHandler:          tagHandler,
		IngredientHandler:   ingredientHandler,
		SubscriptionHandler: subscriptionHandler,
		ShoppingHandler:     shoppingHandler,
		Middleware:          middlewares,
		JWTService:          jwtService,
	}
	routesConfig.Setup()
	return app, nil
}
