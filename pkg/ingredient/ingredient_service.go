package ingredient

import (
	"Foodgram-Backend/domain"
	"Foodgram-Backend/entities"
	"context"
	"errors"

	"gorm.io/gorm"
)

type (
	IngredientService interface {
		GetIngredients(ctx context.Context, namePrefix string) ([]domain.IngredientResponse, error)
		GetIngredient(ctx context.Context, id string) (domain.IngredientResponse, error)
	}

	ingredientService struct {
		ingredientRepository IngredientRepository
	}
)

func NewIngredientService(ingredientRepository IngredientRepository) IngredientService {
	return &ingredientService{ingredientRepository: ingredientRepository}
}

func (s *ingredientService) GetIngredients(ctx context.Context, namePrefix string) ([]domain.IngredientResponse, error) {
	ingredients, err := s.ingredientRepository.GetIngredients(ctx, namePrefix)
	if err != nil {
		return nil, err
	}

	result := make([]domain.IngredientResponse, 0, len(ingredients))
	for _, item := range ingredients {
		result = append(result, toIngredientResponse(item))
	}
	return result, nil
}

func (s *ingredientService) GetIngredient(ctx context.Context, id string) (domain.IngredientResponse, error) {
	item, err := s.ingredientRepository.GetIngredientByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.IngredientResponse{}, domain.ErrIngredientNotFound
		}
		return domain.IngredientResponse{}, err
	}
	return toIngredientResponse(item), nil
}

func toIngredientResponse(item *entities.Ingredient) domain.IngredientResponse {
	return domain.IngredientResponse{
		ID:              item.ID.String(),
		Name:            item.Name,
		MeasurementUnit: item.MeasurementUnit,
	}
}
