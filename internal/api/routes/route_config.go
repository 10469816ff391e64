package routes

import (
	"Foodgram-Backend/internal/api/handlers"
	"Foodgram-Backend/internal/middleware"
	"Foodgram-Backend/pkg/jwt"
	"github.com/gofiber/fiber/v2"
)

type Config struct {
	App                 *fiber.App
	UserHandler         handlers.UserHandler
	RecipeHandler       handlers.RecipeHandler
	TagHandler          handlers.TagHandler
	IngredientHandler   handlers.IngredientHandler
	SubscriptionHandler handlers.SubscriptionHandler
	ShoppingHandler     handlers.ShoppingHandler
	Middleware          middleware.Middleware
	JWTService          jwt.JWTService
}

func (c *Config) Setup() {
	c.App.Use(c.Middleware.CORSMiddleware())
	c.Users()
	c.Recipes()
	c.Tags()
	c.Ingredients()
	c.GuestRoute()
}

func (c *Config) Users() {
	users := c.App.Group("/api/v1/users")
	auth := c.Middleware.AuthMiddleware(c.JWTService)
	{
		users.Post("/register", c.UserHandler.Register)
		users.Post("/login", c.UserHandler.Login)
		users.Get("/me", auth, c.UserHandler.Me)
		users.Post("/set_password", auth, c.UserHandler.SetPassword)
		users.Post("/forget", c.UserHandler.ForgotPassword)
		users.Post("/reset", c.UserHandler.ResetPassword)
		users.Get("/subscriptions", auth, c.SubscriptionHandler.GetSubscriptions)
		users.Get("/:id", c.Middleware.OptionalAuthMiddleware(c.JWTService), c.UserHandler.GetUser)
		users.Post("/:id/subscribe", auth, c.SubscriptionHandler.Subscribe)
		users.Delete("/:id/subscribe", auth, c.SubscriptionHandler.Unsubscribe)
	}
}

func (c *Config) Recipes() {
	recipes := c.App.Group("/api/v1/recipes")
	auth := c.Middleware.AuthMiddleware(c.JWTService)
	optional := c.Middleware.OptionalAuthMiddleware(c.JWTService)

	recipes.Get("", optional, c.RecipeHandler.GetRecipes)
	recipes.Post("", auth, c.RecipeHandler.CreateRecipe)
	recipes.Get("/download_shopping_cart", auth, c.ShoppingHandler.DownloadShoppingList)
	recipes.Get("/:id", optional, c.RecipeHandler.GetRecipeDetail)
	recipes.Patch("/:id", auth, c.RecipeHandler.UpdateRecipe)
	recipes.Delete("/:id", auth, c.RecipeHandler.DeleteRecipe)

	recipes.Post("/:id/favorite", auth, c.RecipeHandler.AddToFavorites)
	recipes.Delete("/:id/favorite", auth, c.RecipeHandler.RemoveFromFavorites)
	recipes.Post("/:id/shopping_cart", auth, c.RecipeHandler.AddToShoppingCart)
	recipes.Delete("/:id/shopping_cart", auth, c.RecipeHandler.RemoveFromShoppingCart)
}

func (c *Config) Tags() {
	tags := c.App.Group("/api/v1/tags")
	tags.Get("", c.TagHandler.GetTags)
	tags.Get("/:id", c.TagHandler.GetTag)
}

func (c *Config) Ingredients() {
	ingredients := c.App.Group("/api/v1/ingredients")
	ingredients.Get("", c.IngredientHandler.GetIngredients)
	ingredients.Get("/:id", c.IngredientHandler.GetIngredient)
}

func (c *Config) GuestRoute() {
	c.App.Get("/api/ping", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"message": "pong"})
	})
}
