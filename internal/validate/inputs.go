package validate

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/RamanBirulia/stock-notebook/internal/models"
)

// PurchaseInput is the user editable part of a purchase.
type PurchaseInput struct {
	Symbol        string          `json:"symbol" validate:"required,symbol"`
	Quantity      decimal.Decimal `json:"quantity" validate:"decgt=0,declte=1000000"`
	PricePerShare decimal.Decimal `json:"pricePerShare" validate:"decgte=0.01,declte=999999.99"`
	Commission    decimal.Decimal `json:"commission" validate:"decgte=0,declte=9999.99"`
	PurchaseDate  models.Date     `json:"purchaseDate" validate:"required,notfuture"`
}

// Normalize trims and upper-cases the symbol. A missing commission is
// already the zero decimal.
func (in *PurchaseInput) Normalize() {
	in.Symbol = models.NormalizeSymbol(in.Symbol)
}

type RegisterInput struct {
	Username        string `json:"username" validate:"required,min=3,max=50,username"`
	Password        string `json:"password" validate:"required,min=6,max=100"`
	ConfirmPassword string `json:"confirmPassword,omitempty" validate:"omitempty,eqfield=Password"`
}

func (in *RegisterInput) Normalize() {
	in.Username = strings.ToLower(strings.TrimSpace(in.Username))
}

type LoginInput struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (in *LoginInput) Normalize() {
	in.Username = strings.ToLower(strings.TrimSpace(in.Username))
}

type ChangePasswordInput struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6,max=100"`
	ConfirmPassword string `json:"confirmPassword,omitempty" validate:"omitempty,eqfield=NewPassword"`
}

// Purchase normalizes and validates in.
func (val *Validator) Purchase(in *PurchaseInput) error {
	in.Normalize()
	return val.Struct(in)
}

func (val *Validator) Register(in *RegisterInput) error {
	in.Normalize()
	return val.Struct(in)
}

func (val *Validator) Login(in *LoginInput) error {
	in.Normalize()
	return val.Struct(in)
}

func (val *Validator) ChangePassword(in *ChangePasswordInput) error {
	if err := val.Struct(in); err != nil {
		return err
	}
	if in.NewPassword == in.CurrentPassword {
		return FieldError("newPassword", "must differ from the current password")
	}
	return nil
}
