package shopping

import (
	"Foodgram-Backend/domain"
	"Foodgram-Backend/entities"
	"Foodgram-Backend/pkg/user"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"
)

type (
	ShoppingService interface {
		DownloadShoppingList(ctx context.Context, userID string) (domain.ShoppingList, error)
	}

	shoppingService struct {
		shoppingRepository ShoppingRepository
		userRepository     user.UserRepository
	}
)

func NewShoppingService(shoppingRepository ShoppingRepository, userRepository user.UserRepository) ShoppingService {
	return &shoppingService{
		shoppingRepository: shoppingRepository,
		userRepository:     userRepository,
	}
}

// DownloadShoppingList builds the plain-text report for every ingredient
// needed across the recipes in the user's cart. An empty cart is rejected
// rather than rendered as a blank file.
func (s *shoppingService) DownloadShoppingList(ctx context.Context, userID string) (domain.ShoppingList, error) {
	owner, err := s.userRepository.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ShoppingList{}, domain.ErrUserNotFound
		}
		return domain.ShoppingList{}, err
	}

	hasEntries, err := s.shoppingRepository.HasCartEntries(ctx, userID)
	if err != nil {
		return domain.ShoppingList{}, err
	}
	if !hasEntries {
		return domain.ShoppingList{}, domain.ErrShoppingCartEmpty
	}

	rows, err := s.shoppingRepository.GetCartIngredients(ctx, userID)
	if err != nil {
		return domain.ShoppingList{}, err
	}

	return domain.ShoppingList{
		Filename: fmt.Sprintf("%s_shopp_list.txt", owner.Username),
		Content:  renderShoppingList(owner, aggregateIngredients(rows), time.Now()),
	}, nil
}

// aggregateIngredients merges the collected rows by (name, measurement
// unit) and sums the amounts within each group. Grouping by the pair rather
// than the ingredient id matches the uniqueness constraint on ingredients;
// sorting by the grouping key keeps the result deterministic regardless of
// the order the rows came back in.
func aggregateIngredients(rows []*entities.RecipeIngredient) []domain.ShoppingListItem {
	type groupKey struct {
		name string
		unit string
	}

	totals := make(map[groupKey]int)
	for _, row := range rows {
		if row.Ingredient == nil {
			continue
		}
		key := groupKey{name: row.Ingredient.Name, unit: row.Ingredient.MeasurementUnit}
		totals[key] += row.Amount
	}

	items := make([]domain.ShoppingListItem, 0, len(totals))
	for key, amount := range totals {
		items = append(items, domain.ShoppingListItem{
			Name:            key.name,
			MeasurementUnit: key.unit,
			Amount:          amount,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Name != items[j].Name {
			return items[i].Name < items[j].Name
		}
		return items[i].MeasurementUnit < items[j].MeasurementUnit
	})

	return items
}

// renderShoppingList produces the exact report layout shipped to clients;
// the wording is fixed for compatibility and must not drift.
func renderShoppingList(owner *entities.User, items []domain.ShoppingListItem, today time.Time) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Дата: %s\n\n", today.Format("2006-01-02"))
	fmt.Fprintf(&b, "Покупки для: %s\n\n", owner.FullName())

	lines := make([]string, 0, len(items))
	for _, item := range items {
		lines = append(lines, fmt.Sprintf("- %s (%s) - %d", item.Name, item.MeasurementUnit, item.Amount))
	}
	b.WriteString(strings.Join(lines, "\n"))

	fmt.Fprintf(&b, "\n\nFoodgram (%d)", today.Year())
	return b.String()
}
