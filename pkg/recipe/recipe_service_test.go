package recipe

import (
	"Foodgram-Backend/domain"
	"Foodgram-Backend/entities"
	"context"
	"encoding/base64"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeRecipeRepository struct {
	recipes           map[string]*entities.Recipe
	tags              map[string]*entities.Tag
	ingredients       map[string]*entities.Ingredient
	relations         map[RecipeRelation]map[string]bool
	recipeIngredients map[string][]*entities.RecipeIngredient

	// when set, AddRelation reports a unique-index conflict even though
	// HasRelation saw nothing, like a concurrent insert would
	duplicateOnAdd bool
}

func newFakeRecipeRepository() *fakeRecipeRepository {
	return &fakeRecipeRepository{
		recipes:     map[string]*entities.Recipe{},
		tags:        map[string]*entities.Tag{},
		ingredients: map[string]*entities.Ingredient{},
		relations: map[RecipeRelation]map[string]bool{
			RelationFavorite:     {},
			RelationShoppingCart: {},
		},
		recipeIngredients: map[string][]*entities.RecipeIngredient{},
	}
}

func relationKey(userID, recipeID string) string {
	return userID + "|" + recipeID
}

func (f *fakeRecipeRepository) CreateRecipe(ctx context.Context, recipe *entities.Recipe, tags []*entities.Tag, ingredients []*entities.RecipeIngredient) error {
	f.recipes[recipe.ID.String()] = recipe
	f.recipeIngredients[recipe.ID.String()] = ingredients
	return nil
}

func (f *fakeRecipeRepository) UpdateRecipe(ctx context.Context, recipe *entities.Recipe, tags []*entities.Tag, ingredients []*entities.RecipeIngredient) error {
	f.recipes[recipe.ID.String()] = recipe
	f.recipeIngredients[recipe.ID.String()] = ingredients
	return nil
}

func (f *fakeRecipeRepository) DeleteRecipe(ctx context.Context, id string) error {
	delete(f.recipes, id)
	delete(f.recipeIngredients, id)
	return nil
}

func (f *fakeRecipeRepository) GetRecipeByID(ctx context.Context, id string) (*entities.Recipe, error) {
	if recipe, ok := f.recipes[id]; ok {
		return recipe, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRecipeRepository) GetRecipes(ctx context.Context, filter domain.RecipeFilter, viewerID string, page, limit int) ([]*entities.Recipe, int64, error) {
	recipes := make([]*entities.Recipe, 0, len(f.recipes))
	for _, recipe := range f.recipes {
		recipes = append(recipes, recipe)
	}
	return recipes, int64(len(recipes)), nil
}

func (f *fakeRecipeRepository) GetRecipeIngredients(ctx context.Context, recipeID string) ([]*entities.RecipeIngredient, error) {
	return f.recipeIngredients[recipeID], nil
}

func (f *fakeRecipeRepository) GetTagsByIDs(ctx context.Context, ids []string) ([]*entities.Tag, error) {
	var tags []*entities.Tag
	for _, id := range ids {
		if tag, ok := f.tags[id]; ok {
			tags = append(tags, tag)
		}
	}
	return tags, nil
}

func (f *fakeRecipeRepository) GetIngredientsByIDs(ctx context.Context, ids []string) ([]*entities.Ingredient, error) {
	var ingredients []*entities.Ingredient
	for _, id := range ids {
		if ingredient, ok := f.ingredients[id]; ok {
			ingredients = append(ingredients, ingredient)
		}
	}
	return ingredients, nil
}

func (f *fakeRecipeRepository) HasRelation(ctx context.Context, kind RecipeRelation, userID, recipeID string) (bool, error) {
	return f.relations[kind][relationKey(userID, recipeID)], nil
}

func (f *fakeRecipeRepository) AddRelation(ctx context.Context, kind RecipeRelation, userID, recipeID string) error {
	key := relationKey(userID, recipeID)
	if f.duplicateOnAdd || f.relations[kind][key] {
		return gorm.ErrDuplicatedKey
	}
	f.relations[kind][key] = true
	return nil
}

func (f *fakeRecipeRepository) RemoveRelation(ctx context.Context, kind RecipeRelation, userID, recipeID string) error {
	key := relationKey(userID, recipeID)
	if !f.relations[kind][key] {
		return gorm.ErrRecordNotFound
	}
	delete(f.relations[kind], key)
	return nil
}

type fakeSubscriptionRepository struct{}

func (f *fakeSubscriptionRepository) GetAuthorByID(ctx context.Context, id string) (*entities.User, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeSubscriptionRepository) IsSubscribed(ctx context.Context, userID, authorID string) (bool, error) {
	return false, nil
}

func (f *fakeSubscriptionRepository) CreateFollow(ctx context.Context, userID, authorID string) error {
	return nil
}

func (f *fakeSubscriptionRepository) DeleteFollow(ctx context.Context, userID, authorID string) error {
	return nil
}

func (f *fakeSubscriptionRepository) GetFollowedAuthors(ctx context.Context, userID string, page, limit int) ([]*entities.User, int64, error) {
	return nil, 0, nil
}

func (f *fakeSubscriptionRepository) GetAuthorRecipes(ctx context.Context, authorID string, limit int) ([]*entities.Recipe, error) {
	return nil, nil
}

func (f *fakeSubscriptionRepository) CountAuthorRecipes(ctx context.Context, authorID string) (int64, error) {
	return 0, nil
}

type fakeS3 struct{}

func (f *fakeS3) UploadFile(ctx context.Context, key string, body []byte, contentType string) (string, error) {
	return "https://bucket.s3.test/" + key, nil
}

func seedRecipe(repo *fakeRecipeRepository) *entities.Recipe {
	recipe := &entities.Recipe{
		ID:          uuid.New(),
		UserID:      uuid.New(),
		Name:        "Борщ",
		CookingTime: 90,
	}
	repo.recipes[recipe.ID.String()] = recipe
	return recipe
}

func seedIngredient(repo *fakeRecipeRepository, name, unit string) *entities.Ingredient {
	ingredient := &entities.Ingredient{
		ID:              uuid.New(),
		Name:            name,
		MeasurementUnit: unit,
	}
	repo.ingredients[ingredient.ID.String()] = ingredient
	return ingredient
}

func seedTag(repo *fakeRecipeRepository, slug string) *entities.Tag {
	tag := &entities.Tag{
		ID:   uuid.New(),
		Name: slug,
		Slug: slug,
	}
	repo.tags[tag.ID.String()] = tag
	return tag
}

func testImage() string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("png-bytes"))
}

func TestAddToFavoritesTwiceFails(t *testing.T) {
	repo := newFakeRecipeRepository()
	recipe := seedRecipe(repo)
	service := NewRecipeService(repo, &fakeSubscriptionRepository{}, &fakeS3{})
	userID := uuid.NewString()

	short, err := service.AddToFavorites(context.Background(), userID, recipe.ID.String())
	require.NoError(t, err)
	assert.Equal(t, recipe.Name, short.Name)

	_, err = service.AddToFavorites(context.Background(), userID, recipe.ID.String())
	assert.ErrorIs(t, err, domain.ErrRecipeAlreadyFavorited)
}

func TestAddToShoppingCartTwiceFails(t *testing.T) {
	repo := newFakeRecipeRepository()
	recipe := seedRecipe(repo)
	service := NewRecipeService(repo, &fakeSubscriptionRepository{}, &fakeS3{})
	userID := uuid.NewString()

	_, err := service.AddToShoppingCart(context.Background(), userID, recipe.ID.String())
	require.NoError(t, err)

	_, err = service.AddToShoppingCart(context.Background(), userID, recipe.ID.String())
	assert.ErrorIs(t, err, domain.ErrRecipeAlreadyInCart)
}

func TestFavoriteAddRemoveRoundTrip(t *testing.T) {
	repo := newFakeRecipeRepository()
	recipe := seedRecipe(repo)
	service := NewRecipeService(repo, &fakeSubscriptionRepository{}, &fakeS3{})
	userID := uuid.NewString()

	_, err := service.AddToFavorites(context.Background(), userID, recipe.ID.String())
	require.NoError(t, err)
	require.NoError(t, service.RemoveFromFavorites(context.Background(), userID, recipe.ID.String()))

	exists, err := repo.HasRelation(context.Background(), RelationFavorite, userID, recipe.ID.String())
	require.NoError(t, err)
	assert.False(t, exists)

	err = service.RemoveFromFavorites(context.Background(), userID, recipe.ID.String())
	assert.ErrorIs(t, err, domain.ErrRecipeNotFavorited)
}

func TestRemoveFromShoppingCartMissing(t *testing.T) {
	repo := newFakeRecipeRepository()
	recipe := seedRecipe(repo)
	service := NewRecipeService(repo, &fakeSubscriptionRepository{}, &fakeS3{})

	err := service.RemoveFromShoppingCart(context.Background(), uuid.NewString(), recipe.ID.String())
	assert.ErrorIs(t, err, domain.ErrRecipeNotInCart)
}

func TestFavoriteUnknownRecipe(t *testing.T) {
	repo := newFakeRecipeRepository()
	service := NewRecipeService(repo, &fakeSubscriptionRepository{}, &fakeS3{})

	_, err := service.AddToFavorites(context.Background(), uuid.NewString(), uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrRecipeNotFound)

	err = service.RemoveFromFavorites(context.Background(), uuid.NewString(), uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrRecipeNotFound)
}

func TestAddRelationRacingInsert(t *testing.T) {
	repo := newFakeRecipeRepository()
	recipe := seedRecipe(repo)
	repo.duplicateOnAdd = true
	service := NewRecipeService(repo, &fakeSubscriptionRepository{}, &fakeS3{})

	_, err := service.AddToFavorites(context.Background(), uuid.NewString(), recipe.ID.String())
	assert.ErrorIs(t, err, domain.ErrRecipeAlreadyFavorited)
}

func TestCreateRecipeValidatesWriteSet(t *testing.T) {
	repo := newFakeRecipeRepository()
	flour := seedIngredient(repo, "Мука", "г")
	tag := seedTag(repo, "dinner")
	service := NewRecipeService(repo, &fakeSubscriptionRepository{}, &fakeS3{})
	userID := uuid.NewString()

	base := domain.RecipeRequest{
		Name:        "Блины",
		Image:       testImage(),
		Text:        "Смешать и жарить",
		CookingTime: 20,
		Tags:        []string{tag.ID.String()},
	}

	t.Run("no ingredients", func(t *testing.T) {
		req := base
		req.Ingredients = nil
		_, err := service.CreateRecipe(context.Background(), req, userID)
		assert.ErrorIs(t, err, domain.ErrNoIngredients)
	})

	t.Run("amount below one", func(t *testing.T) {
		req := base
		req.Ingredients = []domain.RecipeIngredientRequest{{ID: flour.ID.String(), Amount: 0}}
		_, err := service.CreateRecipe(context.Background(), req, userID)
		assert.ErrorIs(t, err, domain.ErrIngredientAmountInvalid)
	})

	t.Run("unknown ingredient", func(t *testing.T) {
		req := base
		req.Ingredients = []domain.RecipeIngredientRequest{{ID: uuid.NewString(), Amount: 100}}
		_, err := service.CreateRecipe(context.Background(), req, userID)
		assert.ErrorIs(t, err, domain.ErrIngredientNotFound)
	})

	t.Run("unknown tag", func(t *testing.T) {
		req := base
		req.Tags = []string{uuid.NewString()}
		req.Ingredients = []domain.RecipeIngredientRequest{{ID: flour.ID.String(), Amount: 100}}
		_, err := service.CreateRecipe(context.Background(), req, userID)
		assert.ErrorIs(t, err, domain.ErrTagNotFound)
	})

	t.Run("valid request", func(t *testing.T) {
		req := base
		req.Ingredients = []domain.RecipeIngredientRequest{{ID: flour.ID.String(), Amount: 100}}
		detail, err := service.CreateRecipe(context.Background(), req, userID)
		require.NoError(t, err)
		assert.Equal(t, "Блины", detail.Name)
		assert.NotEmpty(t, detail.Image)
	})
}

func TestUpdateRecipeReplacesIngredients(t *testing.T) {
	repo := newFakeRecipeRepository()
	flour := seedIngredient(repo, "Мука", "г")
	sugar := seedIngredient(repo, "Сахар", "г")
	tag := seedTag(repo, "breakfast")
	service := NewRecipeService(repo, &fakeSubscriptionRepository{}, &fakeS3{})
	userID := uuid.NewString()

	created, err := service.CreateRecipe(context.Background(), domain.RecipeRequest{
		Name:        "Каша",
		Image:       testImage(),
		Text:        "Варить",
		CookingTime: 15,
		Tags:        []string{tag.ID.String()},
		Ingredients: []domain.RecipeIngredientRequest{{ID: flour.ID.String(), Amount: 200}},
	}, userID)
	require.NoError(t, err)

	_, err = service.UpdateRecipe(context.Background(), created.ID, domain.RecipeRequest{
		Name:        "Каша сладкая",
		Text:        "Варить с сахаром",
		CookingTime: 15,
		Tags:        []string{tag.ID.String()},
		Ingredients: []domain.RecipeIngredientRequest{{ID: sugar.ID.String(), Amount: 50}},
	}, userID, domain.RoleUser)
	require.NoError(t, err)

	rows := repo.recipeIngredients[created.ID]
	require.Len(t, rows, 1, "stale ingredient rows must not survive an update")
	assert.Equal(t, sugar.ID, rows[0].IngredientID)
	assert.Equal(t, 50, rows[0].Amount)
}

func TestUpdateRecipeForbiddenForStranger(t *testing.T) {
	repo := newFakeRecipeRepository()
	recipe := seedRecipe(repo)
	seedIngredient(repo, "Мука", "г")
	service := NewRecipeService(repo, &fakeSubscriptionRepository{}, &fakeS3{})

	_, err := service.UpdateRecipe(context.Background(), recipe.ID.String(), domain.RecipeRequest{}, uuid.NewString(), domain.RoleUser)
	assert.ErrorIs(t, err, domain.ErrUnauthorizedRecipeAccess)

	err = service.DeleteRecipe(context.Background(), recipe.ID.String(), uuid.NewString(), domain.RoleUser)
	assert.ErrorIs(t, err, domain.ErrUnauthorizedRecipeAccess)
}

func TestDeleteRecipeAsAdmin(t *testing.T) {
	repo := newFakeRecipeRepository()
	recipe := seedRecipe(repo)
	service := NewRecipeService(repo, &fakeSubscriptionRepository{}, &fakeS3{})

	require.NoError(t, service.DeleteRecipe(context.Background(), recipe.ID.String(), uuid.NewString(), domain.RoleAdmin))

	_, err := service.GetRecipeDetail(context.Background(), recipe.ID.String(), "")
	assert.ErrorIs(t, err, domain.ErrRecipeNotFound)
}
