package subscription

import (
	"Foodgram-Backend/entities"
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type (
	SubscriptionRepository interface {
		GetAuthorByID(ctx context.Context, id string) (*entities.User, error)
		IsSubscribed(ctx context.Context, userID, authorID string) (bool, error)
		CreateFollow(ctx context.Context, userID, authorID string) error
		DeleteFollow(ctx context.Context, userID, authorID string) error
		GetFollowedAuthors(ctx context.Context, userID string, page, limit int) ([]*entities.User, int64, error)
		GetAuthorRecipes(ctx context.Context, authorID string, limit int) ([]*entities.Recipe, error)
		CountAuthorRecipes(ctx context.Context, authorID string) (int64, error)
	}

	subscriptionRepository struct {
		db *gorm.DB
	}
)

func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

func (r *subscriptionRepository) GetAuthorByID(ctx context.Context, id string) (*entities.User, error) {
	var author entities.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&author).Error; err != nil {
		return nil, err
	}
	return &author, nil
}

func (r *subscriptionRepository) IsSubscribed(ctx context.Context, userID, authorID string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&entities.Follow{}).
		Where("user_id = ? AND author_id = ?", userID, authorID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *subscriptionRepository) CreateFollow(ctx context.Context, userID, authorID string) error {
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return err
	}

	authorUUID, err := uuid.Parse(authorID)
	if err != nil {
		return err
	}

	follow := entities.Follow{
		ID:        uuid.New(),
		UserID:    userUUID,
		AuthorID:  authorUUID,
		CreatedAt: time.Now(),
	}

	return r.db.WithContext(ctx).Create(&follow).Error
}

func (r *subscriptionRepository) DeleteFollow(ctx context.Context, userID, authorID string) error {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND author_id = ?", userID, authorID).
		Delete(&entities.Follow{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *subscriptionRepository) GetFollowedAuthors(ctx context.Context, userID string, page, limit int) ([]*entities.User, int64, error) {
	var authors []*entities.User
	var count int64
	offset := (page - 1) * limit

	if err := r.db.WithContext(ctx).
		Model(&entities.User{}).
		Joins("JOIN follows ON follows.author_id = users.id").
		Where("follows.user_id = ?", userID).
		Count(&count).Error; err != nil {
		return nil, 0, err
	}

	if err := r.db.WithContext(ctx).
		Joins("JOIN follows ON follows.author_id = users.id").
		Where("follows.user_id = ?", userID).
		Offset(offset).
		Limit(limit).
		Order("follows.created_at desc").
		Find(&authors).Error; err != nil {
		return nil, 0, err
	}

	return authors, count, nil
}

func (r *subscriptionRepository) GetAuthorRecipes(ctx context.Context, authorID string, limit int) ([]*entities.Recipe, error) {
	var recipes []*entities.Recipe

	query := r.db.WithContext(ctx).
		Where("user_id = ?", authorID).
		Order("created_at desc")
	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Find(&recipes).Error; err != nil {
		return nil, err
	}
	return recipes, nil
}

func (r *subscriptionRepository) CountAuthorRecipes(ctx context.Context, authorID string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&entities.Recipe{}).
		Where("user_id = ?", authorID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
