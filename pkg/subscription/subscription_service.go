package subscription

import (
	"Foodgram-Backend/domain"
	"Foodgram-Backend/entities"
	"context"
	"errors"

	"gorm.io/gorm"
)

type (
	SubscriptionService interface {
		Subscribe(ctx context.Context, userID, authorID string, recipesLimit int) (domain.Subscription, error)
		Unsubscribe(ctx context.Context, userID, authorID string) error
		GetSubscriptions(ctx context.Context, userID string, recipesLimit, page, limit int) (domain.SubscriptionListResponse, error)
	}

	subscriptionService struct {
		subscriptionRepository SubscriptionRepository
	}
)

func NewSubscriptionService(subscriptionRepository SubscriptionRepository) SubscriptionService {
	return &subscriptionService{subscriptionRepository: subscriptionRepository}
}

func (s *subscriptionService) Subscribe(ctx context.Context, userID, authorID string, recipesLimit int) (domain.Subscription, error) {
	author, err := s.subscriptionRepository.GetAuthorByID(ctx, authorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Subscription{}, domain.ErrUserNotFound
		}
		return domain.Subscription{}, err
	}

	if userID == authorID {
		return domain.Subscription{}, domain.ErrSelfSubscribe
	}

	subscribed, err := s.subscriptionRepository.IsSubscribed(ctx, userID, authorID)
	if err != nil {
		return domain.Subscription{}, err
	}
	if subscribed {
		return domain.Subscription{}, domain.ErrAlreadySubscribed
	}

	if err := s.subscriptionRepository.CreateFollow(ctx, userID, authorID); err != nil {
		// the unique (user, author) index decides the race between two
		// identical subscribe requests
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.Subscription{}, domain.ErrAlreadySubscribed
		}
		return domain.Subscription{}, err
	}

	return s.buildSubscription(ctx, author, recipesLimit)
}

func (s *subscriptionService) Unsubscribe(ctx context.Context, userID, authorID string) error {
	if _, err := s.subscriptionRepository.GetAuthorByID(ctx, authorID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrUserNotFound
		}
		return err
	}

	if err := s.subscriptionRepository.DeleteFollow(ctx, userID, authorID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrNotSubscribed
		}
		return err
	}
	return nil
}

func (s *subscriptionService) GetSubscriptions(ctx context.Context, userID string, recipesLimit, page, limit int) (domain.SubscriptionListResponse, error) {
	authors, count, err := s.subscriptionRepository.GetFollowedAuthors(ctx, userID, page, limit)
	if err != nil {
		return domain.SubscriptionListResponse{}, err
	}

	subscriptions := make([]domain.Subscription, 0, len(authors))
	for _, author := range authors {
		subscription, err := s.buildSubscription(ctx, author, recipesLimit)
		if err != nil {
			return domain.SubscriptionListResponse{}, err
		}
		subscriptions = append(subscriptions, subscription)
	}

	return domain.SubscriptionListResponse{
		Subscriptions: subscriptions,
		Total:         count,
	}, nil
}

func (s *subscriptionService) buildSubscription(ctx context.Context, author *entities.User, recipesLimit int) (domain.Subscription, error) {
	recipes, err := s.subscriptionRepository.GetAuthorRecipes(ctx, author.ID.String(), recipesLimit)
	if err != nil {
		return domain.Subscription{}, err
	}

	count, err := s.subscriptionRepository.CountAuthorRecipes(ctx, author.ID.String())
	if err != nil {
		return domain.Subscription{}, err
	}

	preview := make([]domain.RecipeShort, 0, len(recipes))
	for _, recipe := range recipes {
		preview = append(preview, domain.RecipeShort{
			ID:          recipe.ID.String(),
			Name:        recipe.Name,
			Image:       recipe.ImageURL,
			CookingTime: recipe.CookingTime,
		})
	}

	return domain.Subscription{
		UserResponse: domain.UserResponse{
			ID:           author.ID.String(),
			Email:        author.Email,
			Username:     author.Username,
			FirstName:    author.FirstName,
			LastName:     author.LastName,
			IsSubscribed: true,
		},
		Recipes:      preview,
		RecipesCount: count,
	}, nil
}
