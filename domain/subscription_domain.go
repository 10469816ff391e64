package domain

import (
	"errors"
)

var (
	MessageSuccessSubscribe        = "subscribed to author successfully"
	MessageSuccessUnsubscribe      = "unsubscribed from author successfully"
	MessageSuccessGetSubscriptions = "success get subscriptions"

	MessageFailedSubscribe        = "failed to subscribe to author"
	MessageFailedUnsubscribe      = "failed to unsubscribe from author"
	MessageFailedGetSubscriptions = "failed to get subscriptions"

	ErrSelfSubscribe     = errors.New("you cannot subscribe to yourself")
	ErrAlreadySubscribed = errors.New("already subscribed to this author")
	ErrNotSubscribed     = errors.New("not subscribed to this author")
)

type (
	// Subscription is the author view returned from subscribe and from the
	// subscriptions listing: public profile plus a recipes preview and the
	// author's full recipe count.
	Subscription struct {
		UserResponse
		Recipes      []RecipeShort `json:"recipes"`
		RecipesCount int64         `json:"recipes_count"`
	}

	SubscriptionListResponse struct {
		Subscriptions []Subscription `json:"subscriptions"`
		Total         int64          `json:"total"`
	}
)
