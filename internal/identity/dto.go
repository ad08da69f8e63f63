package identity

import (
	"github.com/google/uuid"

	"github.com/AarushDarne/shelftrack-webapp/pkg/enums"
)

// RegisterUserInput describes a new library user.
type RegisterUserInput struct {
	Name     string     `json:"name" validate:"required,max=200"`
	Email    string     `json:"email" validate:"required,email"`
	Role     enums.Role `json:"role" validate:"required,oneof=admin staff teacher"`
	BranchID uuid.UUID  `json:"branch_id" validate:"required"`
}

// AddBranchInput describes a new school library branch.
type AddBranchInput struct {
	Name    string  `json:"name" validate:"required,max=200"`
	Address string  `json:"address"`
	City    string  `json:"city"`
	State   string  `json:"state"`
	Zip     string  `json:"zip"`
	Phone   *string `json:"phone,omitempty"`
	Email   *string `json:"email,omitempty" validate:"omitempty,email"`
}
