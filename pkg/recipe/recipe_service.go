package recipe

import (
	"Foodgram-Backend/domain"
	"Foodgram-Backend/entities"
	"Foodgram-Backend/internal/utils/storage"
	"Foodgram-Backend/pkg/subscription"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type (
	RecipeService interface {
		GetRecipes(ctx context.Context, filter domain.RecipeFilter, viewerID string, page, limit int) (domain.RecipeListResponse, error)
		GetRecipeDetail(ctx context.Context, recipeID, viewerID string) (domain.RecipeDetail, error)
		CreateRecipe(ctx context.Context, req domain.RecipeRequest, userID string) (domain.RecipeDetail, error)
		UpdateRecipe(ctx context.Context, recipeID string, req domain.RecipeRequest, userID, role string) (domain.RecipeDetail, error)
		DeleteRecipe(ctx context.Context, recipeID, userID, role string) error
		AddToFavorites(ctx context.Context, userID, recipeID string) (domain.RecipeShort, error)
		RemoveFromFavorites(ctx context.Context, userID, recipeID string) error
		AddToShoppingCart(ctx context.Context, userID, recipeID string) (domain.RecipeShort, error)
		RemoveFromShoppingCart(ctx context.Context, userID, recipeID string) error
	}

	recipeService struct {
		recipeRepository       RecipeRepository
		subscriptionRepository subscription.SubscriptionRepository
		s3                     storage.AwsS3
	}
)

// relationOutcomes pairs a relation kind with its conflict and absence
// errors, so favorite and cart toggles share one code path.
type relationOutcomes struct {
	alreadyExists error
	notFound      error
}

var relationErrs = map[RecipeRelation]relationOutcomes{
	RelationFavorite:     {domain.ErrRecipeAlreadyFavorited, domain.ErrRecipeNotFavorited},
	RelationShoppingCart: {domain.ErrRecipeAlreadyInCart, domain.ErrRecipeNotInCart},
}

func NewRecipeService(
	recipeRepository RecipeRepository,
	subscriptionRepository subscription.SubscriptionRepository,
	s3 storage.AwsS3,
) RecipeService {
	return &recipeService{
		recipeRepository:       recipeRepository,
		subscriptionRepository: subscriptionRepository,
		s3:                     s3,
	}
}

func (s *recipeService) GetRecipes(ctx context.Context, filter domain.RecipeFilter, viewerID string, page, limit int) (domain.RecipeListResponse, error) {
	recipes, count, err := s.recipeRepository.GetRecipes(ctx, filter, viewerID, page, limit)
	if err != nil {
		return domain.RecipeListResponse{}, err
	}

	details := make([]domain.RecipeDetail, 0, len(recipes))
	for _, recipe := range recipes {
		detail, err := s.toDetail(ctx, recipe, viewerID)
		if err != nil {
			return domain.RecipeListResponse{}, err
		}
		details = append(details, detail)
	}

	return domain.RecipeListResponse{
		Recipes: details,
		Total:   count,
	}, nil
}

func (s *recipeService) GetRecipeDetail(ctx context.Context, recipeID, viewerID string) (domain.RecipeDetail, error) {
	recipe, err := s.recipeRepository.GetRecipeByID(ctx, recipeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.RecipeDetail{}, domain.ErrRecipeNotFound
		}
		return domain.RecipeDetail{}, err
	}
	return s.toDetail(ctx, recipe, viewerID)
}

func (s *recipeService) CreateRecipe(ctx context.Context, req domain.RecipeRequest, userID string) (domain.RecipeDetail, error) {
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return domain.RecipeDetail{}, domain.ErrParseUUID
	}

	tags, ingredients, err := s.resolveWriteSet(ctx, req)
	if err != nil {
		return domain.RecipeDetail{}, err
	}

	recipe := &entities.Recipe{
		ID:          uuid.New(),
		UserID:      userUUID,
		Name:        req.Name,
		Text:        req.Text,
		CookingTime: req.CookingTime,
	}

	imageURL, err := s.uploadImage(ctx, recipe.ID.String(), req.Image)
	if err != nil {
		return domain.RecipeDetail{}, err
	}
	recipe.ImageURL = imageURL

	for _, row := range ingredients {
		row.RecipeID = recipe.ID
	}

	if err := s.recipeRepository.CreateRecipe(ctx, recipe, tags, ingredients); err != nil {
		return domain.RecipeDetail{}, err
	}

	return s.GetRecipeDetail(ctx, recipe.ID.String(), userID)
}

func (s *recipeService) UpdateRecipe(ctx context.Context, recipeID string, req domain.RecipeRequest, userID, role string) (domain.RecipeDetail, error) {
	recipe, err := s.recipeRepository.GetRecipeByID(ctx, recipeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.RecipeDetail{}, domain.ErrRecipeNotFound
		}
		return domain.RecipeDetail{}, err
	}

	if recipe.UserID.String() != userID && role != domain.RoleAdmin {
		return domain.RecipeDetail{}, domain.ErrUnauthorizedRecipeAccess
	}

	tags, ingredients, err := s.resolveWriteSet(ctx, req)
	if err != nil {
		return domain.RecipeDetail{}, err
	}

	recipe.Name = req.Name
	recipe.Text = req.Text
	recipe.CookingTime = req.CookingTime
	recipe.Tags = nil
	recipe.Ingredients = nil

	if req.Image != "" {
		imageURL, err := s.uploadImage(ctx, recipe.ID.String(), req.Image)
		if err != nil {
			return domain.RecipeDetail{}, err
		}
		recipe.ImageURL = imageURL
	}

	for _, row := range ingredients {
		row.RecipeID = recipe.ID
	}

	if err := s.recipeRepository.UpdateRecipe(ctx, recipe, tags, ingredients); err != nil {
		return domain.RecipeDetail{}, err
	}

	return s.GetRecipeDetail(ctx, recipe.ID.String(), userID)
}

func (s *recipeService) DeleteRecipe(ctx context.Context, recipeID, userID, role string) error {
	recipe, err := s.recipeRepository.GetRecipeByID(ctx, recipeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrRecipeNotFound
		}
		return err
	}

	if recipe.UserID.String() != userID && role != domain.RoleAdmin {
		return domain.ErrUnauthorizedRecipeAccess
	}

	return s.recipeRepository.DeleteRecipe(ctx, recipeID)
}

func (s *recipeService) AddToFavorites(ctx context.Context, userID, recipeID string) (domain.RecipeShort, error) {
	return s.addRelation(ctx, RelationFavorite, userID, recipeID)
}

func (s *recipeService) RemoveFromFavorites(ctx context.Context, userID, recipeID string) error {
	return s.removeRelation(ctx, RelationFavorite, userID, recipeID)
}

func (s *recipeService) AddToShoppingCart(ctx context.Context, userID, recipeID string) (domain.RecipeShort, error) {
	return s.addRelation(ctx, RelationShoppingCart, userID, recipeID)
}

func (s *recipeService) RemoveFromShoppingCart(ctx context.Context, userID, recipeID string) error {
	return s.removeRelation(ctx, RelationShoppingCart, userID, recipeID)
}

// addRelation is the strict toggle-on: a second add for the same pair is a
// conflict, not an upsert.
func (s *recipeService) addRelation(ctx context.Context, kind RecipeRelation, userID, recipeID string) (domain.RecipeShort, error) {
	outcomes := relationErrs[kind]

	recipe, err := s.recipeRepository.GetRecipeByID(ctx, recipeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.RecipeShort{}, domain.ErrRecipeNotFound
		}
		return domain.RecipeShort{}, err
	}

	exists, err := s.recipeRepository.HasRelation(ctx, kind, userID, recipeID)
	if err != nil {
		return domain.RecipeShort{}, err
	}
	if exists {
		return domain.RecipeShort{}, outcomes.alreadyExists
	}

	if err := s.recipeRepository.AddRelation(ctx, kind, userID, recipeID); err != nil {
		// a racing insert loses to the unique (user, recipe) index; report
		// it as the same conflict the existence check would have caught
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.RecipeShort{}, outcomes.alreadyExists
		}
		return domain.RecipeShort{}, err
	}

	return domain.RecipeShort{
		ID:          recipe.ID.String(),
		Name:        recipe.Name,
		Image:       recipe.ImageURL,
		CookingTime: recipe.CookingTime,
	}, nil
}

func (s *recipeService) removeRelation(ctx context.Context, kind RecipeRelation, userID, recipeID string) error {
	outcomes := relationErrs[kind]

	if _, err := s.recipeRepository.GetRecipeByID(ctx, recipeID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrRecipeNotFound
		}
		return err
	}

	if err := s.recipeRepository.RemoveRelation(ctx, kind, userID, recipeID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return outcomes.notFound
		}
		return err
	}
	return nil
}

// resolveWriteSet validates the referenced tags and ingredients and builds
// the RecipeIngredient rows for a create or full-replace update.
func (s *recipeService) resolveWriteSet(ctx context.Context, req domain.RecipeRequest) ([]*entities.Tag, []*entities.RecipeIngredient, error) {
	if len(req.Ingredients) == 0 {
		return nil, nil, domain.ErrNoIngredients
	}

	tags, err := s.recipeRepository.GetTagsByIDs(ctx, req.Tags)
	if err != nil {
		return nil, nil, err
	}
	if len(tags) != len(req.Tags) {
		return nil, nil, domain.ErrTagNotFound
	}

	ids := make([]string, 0, len(req.Ingredients))
	for _, item := range req.Ingredients {
		if item.Amount < 1 {
			return nil, nil, domain.ErrIngredientAmountInvalid
		}
		ids = append(ids, item.ID)
	}

	found, err := s.recipeRepository.GetIngredientsByIDs(ctx, ids)
	if err != nil {
		return nil, nil, err
	}
	known := make(map[string]bool, len(found))
	for _, ingredient := range found {
		known[ingredient.ID.String()] = true
	}

	rows := make([]*entities.RecipeIngredient, 0, len(req.Ingredients))
	for _, item := range req.Ingredients {
		if !known[item.ID] {
			return nil, nil, domain.ErrIngredientNotFound
		}
		ingredientUUID, err := uuid.Parse(item.ID)
		if err != nil {
			return nil, nil, domain.ErrParseUUID
		}
		rows = append(rows, &entities.RecipeIngredient{
			ID:           uuid.New(),
			IngredientID: ingredientUUID,
			Amount:       item.Amount,
		})
	}

	return tags, rows, nil
}

func (s *recipeService) toDetail(ctx context.Context, recipe *entities.Recipe, viewerID string) (domain.RecipeDetail, error) {
	detail := domain.RecipeDetail{
		ID:          recipe.ID.String(),
		Name:        recipe.Name,
		Image:       recipe.ImageURL,
		Text:        recipe.Text,
		CookingTime: recipe.CookingTime,
	}

	detail.Tags = make([]domain.TagResponse, 0, len(recipe.Tags))
	for _, tag := range recipe.Tags {
		detail.Tags = append(detail.Tags, domain.TagResponse{
			ID:    tag.ID.String(),
			Name:  tag.Name,
			Color: tag.Color,
			Slug:  tag.Slug,
		})
	}

	detail.Ingredients = make([]domain.RecipeIngredientResponse, 0, len(recipe.Ingredients))
	for _, row := range recipe.Ingredients {
		item := domain.RecipeIngredientResponse{
			ID:     row.IngredientID.String(),
			Amount: row.Amount,
		}
		if row.Ingredient != nil {
			item.Name = row.Ingredient.Name
			item.MeasurementUnit = row.Ingredient.MeasurementUnit
		}
		detail.Ingredients = append(detail.Ingredients, item)
	}

	if recipe.User != nil {
		author := domain.UserResponse{
			ID:        recipe.User.ID.String(),
			Email:     recipe.User.Email,
			Username:  recipe.User.Username,
			FirstName: recipe.User.FirstName,
			LastName:  recipe.User.LastName,
		}
		if viewerID != "" && viewerID != author.ID {
			subscribed, err := s.subscriptionRepository.IsSubscribed(ctx, viewerID, author.ID)
			if err != nil {
				return domain.RecipeDetail{}, err
			}
			author.IsSubscribed = subscribed
		}
		detail.Author = author
	}

	if viewerID != "" {
		favorited, err := s.recipeRepository.HasRelation(ctx, RelationFavorite, viewerID, detail.ID)
		if err != nil {
			return domain.RecipeDetail{}, err
		}
		detail.IsFavorited = favorited

		inCart, err := s.recipeRepository.HasRelation(ctx, RelationShoppingCart, viewerID, detail.ID)
		if err != nil {
			return domain.RecipeDetail{}, err
		}
		detail.IsInShoppingCart = inCart
	}

	return detail, nil
}

// uploadImage accepts either a data URI ("data:image/png;base64,...") or a
// bare base64 payload and stores the decoded bytes on S3.
func (s *recipeService) uploadImage(ctx context.Context, recipeID, image string) (string, error) {
	contentType := "image/png"
	payload := image

	if strings.HasPrefix(image, "data:") {
		parts := strings.SplitN(image, ";base64,", 2)
		if len(parts) != 2 {
			return "", fmt.Errorf("malformed image data URI")
		}
		contentType = strings.TrimPrefix(parts[0], "data:")
		payload = parts[1]
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", err
	}

	ext := "png"
	if idx := strings.Index(contentType, "/"); idx >= 0 && idx+1 < len(contentType) {
		ext = contentType[idx+1:]
	}

	key := fmt.Sprintf("recipes/%s.%s", recipeID, ext)
	return s.s3.UploadFile(ctx, key, data, contentType)
}
