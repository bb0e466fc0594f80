package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/RamanBirulia/stock-notebook/internal/models"
	"github.com/RamanBirulia/stock-notebook/internal/repository"
	"github.com/RamanBirulia/stock-notebook/internal/validate"
)

const (
	DefaultRecentLimit = 10
	MaxRecentLimit     = 100
)

type PurchaseService struct {
	store repository.PurchaseStore
	val   *validate.Validator
	log   *zap.Logger
	now   func() time.Time
}

func NewPurchaseService(store repository.PurchaseStore, val *validate.Validator, log *zap.Logger) *PurchaseService {
	if val == nil {
		val = validate.Default
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &PurchaseService{store: store, val: val, log: log, now: time.Now}
}

func (s *PurchaseService) Create(ctx context.Context, userID uuid.UUID, in validate.PurchaseInput) (models.Purchase, error) {
	if err := s.val.Purchase(&in); err != nil {
		return models.Purchase{}, err
	}
	p := models.Purchase{
		ID:            uuid.New(),
		UserID:        userID,
		Symbol:        in.Symbol,
		Quantity:      in.Quantity,
		PricePerShare: in.PricePerShare,
		Commission:    in.Commission,
		PurchaseDate:  in.PurchaseDate,
		CreatedAt:     s.now().UTC(),
	}
	if err := s.store.CreatePurchase(ctx, &p); err != nil {
		return models.Purchase{}, storeErr("create purchase", err)
	}
	s.log.Info("purchase recorded",
		zap.String("user_id", userID.String()),
		zap.String("symbol", p.Symbol),
		zap.String("quantity", p.Quantity.String()))
	return p, nil
}

func (s *PurchaseService) List(ctx context.Context, userID uuid.UUID) ([]models.Purchase, error) {
	return s.list(ctx, repository.PurchaseFilter{UserID: userID})
}

func (s *PurchaseService) Get(ctx context.Context, userID, id uuid.UUID) (models.Purchase, error) {
	p, err := s.store.PurchaseByID(ctx, userID, id)
	if err != nil {
		return models.Purchase{}, storeErr("get purchase", err)
	}
	return p, nil
}

// Update replaces the editable fields of a purchase owned by userID.
func (s *PurchaseService) Update(ctx context.Context, userID, id uuid.UUID, in validate.PurchaseInput) (models.Purchase, error) {
	if err := s.val.Purchase(&in); err != nil {
		return models.Purchase{}, err
	}
	p, err := s.store.PurchaseByID(ctx, userID, id)
	if err != nil {
		return models.Purchase{}, storeErr("update purchase", err)
	}
	p.Symbol = in.Symbol
	p.Quantity = in.Quantity
	p.PricePerShare = in.PricePerShare
	p.Commission = in.Commission
	p.PurchaseDate = in.PurchaseDate
	if err := s.store.UpdatePurchase(ctx, &p); err != nil {
		return models.Purchase{}, storeErr("update purchase", err)
	}
	return p, nil
}

func (s *PurchaseService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return storeErr("delete purchase", s.store.DeletePurchase(ctx, userID, id))
}

func (s *PurchaseService) BySymbol(ctx context.Context, userID uuid.UUID, symbol string) ([]models.Purchase, error) {
	symbol = models.NormalizeSymbol(symbol)
	if symbol == "" {
		return nil, validate.FieldError("symbol", "is required")
	}
	return s.list(ctx, repository.PurchaseFilter{UserID: userID, Symbol: symbol})
}

// DateRange lists purchases with from <= purchaseDate <= to.
func (s *PurchaseService) DateRange(ctx context.Context, userID uuid.UUID, from, to models.Date) ([]models.Purchase, error) {
	verr := &validate.Error{Fields: map[string]string{}}
	if from.IsZero() {
		verr.Fields["startDate"] = "is required"
	}
	if to.IsZero() {
		verr.Fields["endDate"] = "is required"
	}
	if len(verr.Fields) == 0 && from.After(to) {
		verr.Fields["startDate"] = "must not be after endDate"
	}
	if len(verr.Fields) > 0 {
		return nil, verr
	}
	return s.list(ctx, repository.PurchaseFilter{UserID: userID, From: from, To: to})
}

// Recent returns the newest purchases. limit defaults to 10 and is capped
// at 100.
func (s *PurchaseService) Recent(ctx context.Context, userID uuid.UUID, limit int) ([]models.Purchase, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	if limit > MaxRecentLimit {
		limit = MaxRecentLimit
	}
	return s.list(ctx, repository.PurchaseFilter{UserID: userID, Limit: limit})
}

func (s *PurchaseService) Symbols(ctx context.Context, userID uuid.UUID) ([]string, error) {
	symbols, err := s.store.UserSymbols(ctx, userID)
	if err != nil {
		return nil, storeErr("user symbols", err)
	}
	if symbols == nil {
		symbols = []string{}
	}
	return symbols, nil
}

func (s *PurchaseService) list(ctx context.Context, f repository.PurchaseFilter) ([]models.Purchase, error) {
	ps, err := s.store.ListPurchases(ctx, f)
	if err != nil {
		return nil, storeErr("list purchases", err)
	}
	if ps == nil {
		ps = []models.Purchase{}
	}
	return ps, nil
}
