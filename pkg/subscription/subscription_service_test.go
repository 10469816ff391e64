package subscription

import (
	"Foodgram-Backend/domain"
	"Foodgram-Backend/entities"
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeSubscriptionRepository struct {
	authors map[string]*entities.User
	follows map[string]bool
	recipes map[string][]*entities.Recipe
}

func newFakeSubscriptionRepository() *fakeSubscriptionRepository {
	return &fakeSubscriptionRepository{
		authors: map[string]*entities.User{},
		follows: map[string]bool{},
		recipes: map[string][]*entities.Recipe{},
	}
}

func followKey(userID, authorID string) string {
	return userID + "|" + authorID
}

func (f *fakeSubscriptionRepository) GetAuthorByID(ctx context.Context, id string) (*entities.User, error) {
	if author, ok := f.authors[id]; ok {
		return author, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeSubscriptionRepository) IsSubscribed(ctx context.Context, userID, authorID string) (bool, error) {
	return f.follows[followKey(userID, authorID)], nil
}

func (f *fakeSubscriptionRepository) CreateFollow(ctx context.Context, userID, authorID string) error {
	key := followKey(userID, authorID)
	if f.follows[key] {
		return gorm.ErrDuplicatedKey
	}
	f.follows[key] = true
	return nil
}

func (f *fakeSubscriptionRepository) DeleteFollow(ctx context.Context, userID, authorID string) error {
	key := followKey(userID, authorID)
	if !f.follows[key] {
		return gorm.ErrRecordNotFound
	}
	delete(f.follows, key)
	return nil
}

func (f *fakeSubscriptionRepository) GetFollowedAuthors(ctx context.Context, userID string, page, limit int) ([]*entities.User, int64, error) {
	var authors []*entities.User
	for _, author := range f.authors {
		if f.follows[followKey(userID, author.ID.String())] {
			authors = append(authors, author)
		}
	}
	return authors, int64(len(authors)), nil
}

func (f *fakeSubscriptionRepository) GetAuthorRecipes(ctx context.Context, authorID string, limit int) ([]*entities.Recipe, error) {
	recipes := f.recipes[authorID]
	if limit > 0 && limit < len(recipes) {
		recipes = recipes[:limit]
	}
	return recipes, nil
}

func (f *fakeSubscriptionRepository) CountAuthorRecipes(ctx context.Context, authorID string) (int64, error) {
	return int64(len(f.recipes[authorID])), nil
}

func seedAuthor(repo *fakeSubscriptionRepository, username string, recipeCount int) *entities.User {
	author := &entities.User{
		ID:       uuid.New(),
		Username: username,
		Email:    username + "@foodgram.test",
	}
	repo.authors[author.ID.String()] = author
	for i := 0; i < recipeCount; i++ {
		repo.recipes[author.ID.String()] = append(repo.recipes[author.ID.String()], &entities.Recipe{
			ID:          uuid.New(),
			UserID:      author.ID,
			Name:        fmt.Sprintf("%s recipe %d", username, i+1),
			CookingTime: 10,
		})
	}
	return author
}

func TestSubscribeToSelf(t *testing.T) {
	repo := newFakeSubscriptionRepository()
	author := seedAuthor(repo, "chef", 1)
	service := NewSubscriptionService(repo)

	_, err := service.Subscribe(context.Background(), author.ID.String(), author.ID.String(), 0)
	assert.ErrorIs(t, err, domain.ErrSelfSubscribe)
}

func TestSubscribeTwiceFails(t *testing.T) {
	repo := newFakeSubscriptionRepository()
	author := seedAuthor(repo, "chef", 1)
	service := NewSubscriptionService(repo)
	userID := uuid.NewString()

	_, err := service.Subscribe(context.Background(), userID, author.ID.String(), 0)
	require.NoError(t, err)

	_, err = service.Subscribe(context.Background(), userID, author.ID.String(), 0)
	assert.ErrorIs(t, err, domain.ErrAlreadySubscribed)
}

func TestSubscribeUnknownAuthor(t *testing.T) {
	service := NewSubscriptionService(newFakeSubscriptionRepository())

	_, err := service.Subscribe(context.Background(), uuid.NewString(), uuid.NewString(), 0)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	err = service.Unsubscribe(context.Background(), uuid.NewString(), uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestSubscribeRecipesLimit(t *testing.T) {
	repo := newFakeSubscriptionRepository()
	author := seedAuthor(repo, "chef", 5)
	service := NewSubscriptionService(repo)

	subscription, err := service.Subscribe(context.Background(), uuid.NewString(), author.ID.String(), 2)
	require.NoError(t, err)

	assert.Len(t, subscription.Recipes, 2, "preview respects recipes_limit")
	assert.EqualValues(t, 5, subscription.RecipesCount, "count covers all recipes, not the preview")
	assert.True(t, subscription.IsSubscribed)
}

func TestSubscribeWithoutLimitReturnsAll(t *testing.T) {
	repo := newFakeSubscriptionRepository()
	author := seedAuthor(repo, "chef", 3)
	service := NewSubscriptionService(repo)

	subscription, err := service.Subscribe(context.Background(), uuid.NewString(), author.ID.String(), 0)
	require.NoError(t, err)
	assert.Len(t, subscription.Recipes, 3)
}

func TestUnsubscribeRoundTrip(t *testing.T) {
	repo := newFakeSubscriptionRepository()
	author := seedAuthor(repo, "chef", 0)
	service := NewSubscriptionService(repo)
	userID := uuid.NewString()

	_, err := service.Subscribe(context.Background(), userID, author.ID.String(), 0)
	require.NoError(t, err)
	require.NoError(t, service.Unsubscribe(context.Background(), userID, author.ID.String()))

	subscribed, err := repo.IsSubscribed(context.Background(), userID, author.ID.String())
	require.NoError(t, err)
	assert.False(t, subscribed)

	err = service.Unsubscribe(context.Background(), userID, author.ID.String())
	assert.ErrorIs(t, err, domain.ErrNotSubscribed)
}

func TestGetSubscriptions(t *testing.T) {
	repo := newFakeSubscriptionRepository()
	first := seedAuthor(repo, "alice", 1)
	second := seedAuthor(repo, "bob", 2)
	seedAuthor(repo, "stranger", 4)
	service := NewSubscriptionService(repo)
	userID := uuid.NewString()

	_, err := service.Subscribe(context.Background(), userID, first.ID.String(), 0)
	require.NoError(t, err)
	_, err = service.Subscribe(context.Background(), userID, second.ID.String(), 0)
	require.NoError(t, err)

	list, err := service.GetSubscriptions(context.Background(), userID, 0, 1, 10)
	require.NoError(t, err)

	assert.EqualValues(t, 2, list.Total)
	require.Len(t, list.Subscriptions, 2)
	for _, subscription := range list.Subscriptions {
		assert.True(t, subscription.IsSubscribed)
	}
}
