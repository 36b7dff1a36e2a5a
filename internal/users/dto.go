package users

import (
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/tradeflow-backend/pkg/db/models"
)

// UserDTO is the payer summary exposed on payment and order responses.
type UserDTO struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Phone     *string   `json:"phone,omitempty"`
}

// CreateUserDTO seeds a payer record.
type CreateUserDTO struct {
	Email     string
	FirstName string
	LastName  string
	Phone     *string
}

// ToModel converts the create payload into an active user model.
func (dto CreateUserDTO) ToModel() *models.User {
	return &models.User{
		Email:     normalizeEmail(dto.Email),
		FirstName: strings.TrimSpace(dto.FirstName),
		LastName:  strings.TrimSpace(dto.LastName),
		Phone:     dto.Phone,
		IsActive:  true,
	}
}

// FromModel maps a user model into its DTO.
func FromModel(u *models.User) UserDTO {
	return UserDTO{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Phone:     u.Phone,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
