// Package mongostore implements repository.Store on MongoDB.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/RamanBirulia/stock-notebook/internal/models"
	"github.com/RamanBirulia/stock-notebook/internal/repository"
)

const (
	colUsers     = "users"
	colPurchases = "purchases"
	colStockData = "stock_data"
	colSymbols   = "stock_symbols"
	colHoldings  = "daily_holdings"
)

type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

var _ repository.Store = (*Store)(nil)

// New wraps a connected client. Call EnsureIndexes before first use.
func New(client *mongo.Client, database string) *Store {
	return &Store{client: client, db: client.Database(database)}
}

func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		colUsers: {
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		colPurchases: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "purchase_date", Value: -1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "symbol", Value: 1}}},
		},
		colStockData: {
			{Keys: bson.D{{Key: "symbol", Value: 1}, {Key: "date", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		colSymbols: {
			{Keys: bson.D{{Key: "symbol", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		colHoldings: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "date", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	}
	for col, idx := range indexes {
		if _, err := s.db.Collection(col).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("create %s indexes: %w", col, err)
		}
	}
	return nil
}

// Drop removes every collection. Used by tests.
func (s *Store) Drop(ctx context.Context) error {
	return s.db.Drop(ctx)
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	u.CreatedAt = u.CreatedAt.Truncate(time.Millisecond)
	u.Username = strings.ToLower(u.Username)
	_, err := s.db.Collection(colUsers).InsertOne(ctx, userDoc(*u))
	if mongo.IsDuplicateKeyError(err) {
		return repository.ErrUsernameTaken
	}
	return err
}

func (s *Store) findUser(ctx context.Context, filter bson.M) (models.User, error) {
	var doc bson.M
	err := s.db.Collection(colUsers).FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.User{}, repository.ErrNotFound
	}
	if err != nil {
		return models.User{}, err
	}
	return userFromDoc(doc), nil
}

func (s *Store) UserByID(ctx context.Context, id uuid.UUID) (models.User, error) {
	return s.findUser(ctx, bson.M{"_id": id.String()})
}

func (s *Store) UserByUsername(ctx context.Context, username string) (models.User, error) {
	return s.findUser(ctx, bson.M{"username": strings.ToLower(username)})
}

func (s *Store) updateUser(ctx context.Context, id uuid.UUID, set bson.M) error {
	res, err := s.db.Collection(colUsers).UpdateOne(ctx, bson.M{"_id": id.String()}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (s *Store) TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return s.updateUser(ctx, id, bson.M{"last_login": at.UTC()})
}

func (s *Store) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	return s.updateUser(ctx, id, bson.M{"password_hash": hash})
}

func (s *Store) CreatePurchase(ctx context.Context, p *models.Purchase) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	p.CreatedAt = p.CreatedAt.Truncate(time.Millisecond)
	p.Symbol = models.NormalizeSymbol(p.Symbol)

	doc := purchaseFields(*p)
	doc["_id"] = p.ID.String()
	doc["created_at"] = p.CreatedAt
	_, err := s.db.Collection(colPurchases).InsertOne(ctx, doc)
	return err
}

func ownedBy(userID, id uuid.UUID) bson.M {
	return bson.M{"_id": id.String(), "user_id": userID.String()}
}

func (s *Store) PurchaseByID(ctx context.Context, userID, id uuid.UUID) (models.Purchase, error) {
	var doc bson.M
	err := s.db.Collection(colPurchases).FindOne(ctx, ownedBy(userID, id)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Purchase{}, repository.ErrNotFound
	}
	if err != nil {
		return models.Purchase{}, err
	}
	return purchaseFromDoc(doc), nil
}

func (s *Store) UpdatePurchase(ctx context.Context, p *models.Purchase) error {
	p.Symbol = models.NormalizeSymbol(p.Symbol)
	var doc bson.M
	err := s.db.Collection(colPurchases).FindOneAndUpdate(ctx,
		ownedBy(p.UserID, p.ID),
		bson.M{"$set": purchaseFields(*p)},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return repository.ErrNotFound
	}
	if err != nil {
		return err
	}
	p.CreatedAt = timeOf(doc, "created_at")
	return nil
}

func (s *Store) DeletePurchase(ctx context.Context, userID, id uuid.UUID) error {
	res, err := s.db.Collection(colPurchases).DeleteOne(ctx, ownedBy(userID, id))
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func purchaseFilter(f repository.PurchaseFilter) bson.M {
	filter := bson.M{}
	if f.UserID != uuid.Nil {
		filter["user_id"] = f.UserID.String()
	}
	if f.Symbol != "" {
		filter["symbol"] = models.NormalizeSymbol(f.Symbol)
	}
	dates := bson.M{}
	if !f.From.IsZero() {
		dates["$gte"] = f.From.Time()
	}
	if !f.To.IsZero() {
		dates["$lte"] = f.To.Time()
	}
	if len(dates) > 0 {
		filter["purchase_date"] = dates
	}
	return filter
}

func (s *Store) ListPurchases(ctx context.Context, f repository.PurchaseFilter) ([]models.Purchase, error) {
	opts := options.Find().SetSort(bson.D{{Key: "purchase_date", Value: -1}, {Key: "created_at", Value: -1}})
	if f.Limit > 0 {
		opts.SetLimit(int64(f.Limit))
	}
	cursor, err := s.db.Collection(colPurchases).Find(ctx, purchaseFilter(f), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []bson.M
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	items := make([]models.Purchase, 0, len(docs))
	for _, doc := range docs {
		items = append(items, purchaseFromDoc(doc))
	}
	return items, nil
}

func (s *Store) distinctStrings(ctx context.Context, field string, filter bson.M) ([]string, error) {
	values, err := s.db.Collection(colPurchases).Distinct(ctx, field, filter)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) UserSymbols(ctx context.Context, userID uuid.UUID) ([]string, error) {
	return s.distinctStrings(ctx, "symbol", bson.M{"user_id": userID.String()})
}

func (s *Store) TrackedSymbols(ctx context.Context) ([]string, error) {
	return s.distinctStrings(ctx, "symbol", bson.M{})
}

func (s *Store) PurchaseOwners(ctx context.Context) ([]uuid.UUID, error) {
	ids, err := s.distinctStrings(ctx, "user_id", bson.M{})
	if err != nil {
		return nil, err
	}
	out := make([]uuid.UUID, 0, len(ids))
	for _, raw := range ids {
		if id, err := uuid.Parse(raw); err == nil {
			out = append(out, id)
		}
	}
	return out, nil
}

func stockWrite(row models.StockData) mongo.WriteModel {
	symbol := models.NormalizeSymbol(row.Symbol)
	updatedAt := row.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	set := bson.M{
		"symbol":     symbol,
		"date":       row.Date.Time(),
		"price":      decimalToString(row.Price),
		"updated_at": updatedAt,
	}
	if row.Volume != nil {
		set["volume"] = *row.Volume
	}
	return mongo.NewUpdateOneModel().
		SetFilter(bson.M{"symbol": symbol, "date": row.Date.Time()}).
		SetUpdate(bson.M{"$set": set}).
		SetUpsert(true)
}

func (s *Store) UpsertStockData(ctx context.Context, row models.StockData) error {
	return s.UpsertStockDataBatch(ctx, []models.StockData{row})
}

func (s *Store) UpsertStockDataBatch(ctx context.Context, rows []models.StockData) error {
	if len(rows) == 0 {
		return nil
	}
	writes := make([]mongo.WriteModel, 0, len(rows))
	for _, row := range rows {
		writes = append(writes, stockWrite(row))
	}
	_, err := s.db.Collection(colStockData).BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(false))
	return err
}

func (s *Store) StockDataOn(ctx context.Context, symbol string, date models.Date) (models.StockData, error) {
	var doc bson.M
	err := s.db.Collection(colStockData).FindOne(ctx, bson.M{
		"symbol": models.NormalizeSymbol(symbol),
		"date":   date.Time(),
	}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.StockData{}, repository.ErrNotFound
	}
	if err != nil {
		return models.StockData{}, err
	}
	return stockFromDoc(doc), nil
}

func (s *Store) StockDataRange(ctx context.Context, symbol string, from, to models.Date) ([]models.StockData, error) {
	opts := options.Find().SetSort(bson.M{"date": 1})
	cursor, err := s.db.Collection(colStockData).Find(ctx, bson.M{
		"symbol": models.NormalizeSymbol(symbol),
		"date":   bson.M{"$gte": from.Time(), "$lte": to.Time()},
	}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []bson.M
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	items := make([]models.StockData, 0, len(docs))
	for _, doc := range docs {
		items = append(items, stockFromDoc(doc))
	}
	return items, nil
}

func (s *Store) UpsertSymbols(ctx context.Context, symbols []models.StockSymbol) error {
	if len(symbols) == 0 {
		return nil
	}
	writes := make([]mongo.WriteModel, 0, len(symbols))
	for _, sym := range symbols {
		symbol := models.NormalizeSymbol(sym.Symbol)
		writes = append(writes, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"symbol": symbol}).
			SetUpdate(bson.M{"$set": bson.M{
				"symbol":     symbol,
				"name":       sym.Name,
				"exchange":   sym.Exchange,
				"asset_type": sym.AssetType,
				"ipo_date":   sym.IPODate,
				"status":     sym.Status,
				"updated_at": time.Now().UTC(),
			}}).
			SetUpsert(true))
	}
	_, err := s.db.Collection(colSymbols).BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(false))
	return err
}

func (s *Store) SearchSymbols(ctx context.Context, query string, limit int) ([]models.StockSymbol, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return []models.StockSymbol{}, nil
	}
	quoted := regexp.QuoteMeta(q)
	filter := bson.M{"$or": []bson.M{
		{"symbol": bson.M{"$regex": "^" + regexp.QuoteMeta(strings.ToUpper(q))}},
		{"name": bson.M{"$regex": quoted, "$options": "i"}},
	}}
	opts := options.Find().SetSort(bson.M{"symbol": 1})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cursor, err := s.db.Collection(colSymbols).Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []bson.M
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	items := make([]models.StockSymbol, 0, len(docs))
	for _, doc := range docs {
		items = append(items, symbolFromDoc(doc))
	}
	return items, nil
}

func (s *Store) UpsertDailyValue(ctx context.Context, userID uuid.UUID, v models.DailyValue) error {
	_, err := s.db.Collection(colHoldings).UpdateOne(
		ctx,
		bson.M{"user_id": userID.String(), "date": v.Date.Time()},
		bson.M{"$set": bson.M{
			"user_id":     userID.String(),
			"date":        v.Date.Time(),
			"total_value": decimalToString(v.TotalValue),
			"total_spent": decimalToString(v.TotalSpent),
			"updated_at":  time.Now().UTC(),
		}},
		options.Update().SetUpsert(true),
	)
	return err
}

func (s *Store) DailyValues(ctx context.Context, userID uuid.UUID, before models.Date) ([]models.DailyValue, error) {
	opts := options.Find().SetSort(bson.M{"date": 1})
	cursor, err := s.db.Collection(colHoldings).Find(ctx, bson.M{
		"user_id": userID.String(),
		"date":    bson.M{"$lt": before.Time()},
	}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []bson.M
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	items := make([]models.DailyValue, 0, len(docs))
	for _, doc := range docs {
		items = append(items, models.DailyValue{
			Date:       dateOf(doc, "date"),
			TotalValue: decOf(doc, "total_value"),
			TotalSpent: decOf(doc, "total_spent"),
		})
	}
	return items, nil
}
