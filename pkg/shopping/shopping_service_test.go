package shopping

import (
	"Foodgram-Backend/domain"
	"Foodgram-Backend/entities"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeShoppingRepository struct {
	rows       []*entities.RecipeIngredient
	hasEntries bool
}

func (f *fakeShoppingRepository) HasCartEntries(ctx context.Context, userID string) (bool, error) {
	return f.hasEntries, nil
}

func (f *fakeShoppingRepository) GetCartIngredients(ctx context.Context, userID string) ([]*entities.RecipeIngredient, error) {
	return f.rows, nil
}

type fakeUserRepository struct {
	users map[string]*entities.User
}

func (f *fakeUserRepository) CreateUser(ctx context.Context, u *entities.User) error {
	f.users[u.ID.String()] = u
	return nil
}

func (f *fakeUserRepository) GetUserByID(ctx context.Context, id string) (*entities.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserRepository) GetUserByEmail(ctx context.Context, email string) (*entities.User, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserRepository) GetUserByUsername(ctx context.Context, username string) (*entities.User, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserRepository) UpdateUser(ctx context.Context, u *entities.User) error {
	f.users[u.ID.String()] = u
	return nil
}

func cartRow(name, unit string, amount int) *entities.RecipeIngredient {
	return &entities.RecipeIngredient{
		ID:     uuid.New(),
		Amount: amount,
		Ingredient: &entities.Ingredient{
			ID:              uuid.New(),
			Name:            name,
			MeasurementUnit: unit,
		},
	}
}

func newShoppingFixture(rows []*entities.RecipeIngredient) (ShoppingService, *entities.User) {
	owner := &entities.User{
		ID:        uuid.New(),
		Username:  "ivan",
		FirstName: "Иван",
		LastName:  "Петров",
	}
	users := &fakeUserRepository{users: map[string]*entities.User{owner.ID.String(): owner}}
	repo := &fakeShoppingRepository{rows: rows, hasEntries: len(rows) > 0}
	return NewShoppingService(repo, users), owner
}

func TestDownloadShoppingListSumsDuplicates(t *testing.T) {
	// recipe A: Flour 200 g, Sugar 50 g; recipe B: Flour 100 g, Egg 2 pcs
	rows := []*entities.RecipeIngredient{
		cartRow("Flour", "g", 200),
		cartRow("Sugar", "g", 50),
		cartRow("Flour", "g", 100),
		cartRow("Egg", "pcs", 2),
	}
	service, owner := newShoppingFixture(rows)

	list, err := service.DownloadShoppingList(context.Background(), owner.ID.String())
	require.NoError(t, err)

	assert.Contains(t, list.Content, "- Flour (g) - 300")
	assert.Contains(t, list.Content, "- Sugar (g) - 50")
	assert.Contains(t, list.Content, "- Egg (pcs) - 2")
	assert.Equal(t, 1, strings.Count(list.Content, "Flour"), "duplicate groups must merge into one line")
}

func TestDownloadShoppingListEmptyCart(t *testing.T) {
	service, owner := newShoppingFixture(nil)

	_, err := service.DownloadShoppingList(context.Background(), owner.ID.String())
	assert.ErrorIs(t, err, domain.ErrShoppingCartEmpty)
}

func TestDownloadShoppingListUnknownUser(t *testing.T) {
	service, _ := newShoppingFixture([]*entities.RecipeIngredient{cartRow("Flour", "g", 100)})

	_, err := service.DownloadShoppingList(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestDownloadShoppingListFilename(t *testing.T) {
	service, owner := newShoppingFixture([]*entities.RecipeIngredient{cartRow("Flour", "g", 100)})

	list, err := service.DownloadShoppingList(context.Background(), owner.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "ivan_shopp_list.txt", list.Filename)
}

func TestAggregateIngredientsDeterministic(t *testing.T) {
	forward := []*entities.RecipeIngredient{
		cartRow("Мука", "г", 200),
		cartRow("Сахар", "г", 50),
		cartRow("Мука", "г", 100),
	}
	backward := []*entities.RecipeIngredient{forward[2], forward[1], forward[0]}

	assert.Equal(t, aggregateIngredients(forward), aggregateIngredients(backward))
}

func TestAggregateIngredientsGroupsByNameAndUnit(t *testing.T) {
	// same name, different unit: two distinct groups
	rows := []*entities.RecipeIngredient{
		cartRow("Сахар", "г", 100),
		cartRow("Сахар", "ст. л.", 2),
	}

	items := aggregateIngredients(rows)
	require.Len(t, items, 2)
	assert.Equal(t, "г", items[0].MeasurementUnit)
	assert.Equal(t, 100, items[0].Amount)
	assert.Equal(t, "ст. л.", items[1].MeasurementUnit)
	assert.Equal(t, 2, items[1].Amount)
}

func TestRenderShoppingListTemplate(t *testing.T) {
	owner := &entities.User{
		Username:  "ivan",
		FirstName: "Иван",
		LastName:  "Петров",
	}
	items := []domain.ShoppingListItem{
		{Name: "Мука", MeasurementUnit: "г", Amount: 300},
		{Name: "Яйцо", MeasurementUnit: "шт.", Amount: 2},
	}
	today := time.Date(2024, 5, 17, 12, 0, 0, 0, time.UTC)

	expected := "Дата: 2024-05-17\n\n" +
		"Покупки для: Иван Петров\n\n" +
		"- Мука (г) - 300\n" +
		"- Яйцо (шт.) - 2\n\n" +
		"Foodgram (2024)"

	assert.Equal(t, expected, renderShoppingList(owner, items, today))
}
