package mongostore

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/RamanBirulia/stock-notebook/internal/models"
)

// Decimals are stored as strings so no precision is lost.
func decimalToString(d decimal.Decimal) string {
	return d.String()
}

func stringToDecimal(s string) decimal.Decimal {
	dec, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return dec
}

func str(doc bson.M, key string) string {
	s, _ := doc[key].(string)
	return s
}

func decOf(doc bson.M, key string) decimal.Decimal {
	return stringToDecimal(str(doc, key))
}

func idOf(doc bson.M, key string) uuid.UUID {
	id, _ := uuid.Parse(str(doc, key))
	return id
}

func timeOf(doc bson.M, key string) time.Time {
	switch v := doc[key].(type) {
	case primitive.DateTime:
		return v.Time().UTC()
	case time.Time:
		return v.UTC()
	}
	return time.Time{}
}

func timePtrOf(doc bson.M, key string) *time.Time {
	t := timeOf(doc, key)
	if t.IsZero() {
		return nil
	}
	return &t
}

func dateOf(doc bson.M, key string) models.Date {
	return models.DateOf(timeOf(doc, key))
}

func volumeOf(doc bson.M, key string) *int64 {
	switch v := doc[key].(type) {
	case int64:
		return &v
	case int32:
		n := int64(v)
		return &n
	}
	return nil
}

func userDoc(u models.User) bson.M {
	doc := bson.M{
		"_id":           u.ID.String(),
		"username":      u.Username,
		"password_hash": u.PasswordHash,
		"created_at":    u.CreatedAt,
	}
	if u.LastLogin != nil {
		doc["last_login"] = *u.LastLogin
	}
	return doc
}

func userFromDoc(doc bson.M) models.User {
	return models.User{
		ID:           idOf(doc, "_id"),
		Username:     str(doc, "username"),
		PasswordHash: str(doc, "password_hash"),
		CreatedAt:    timeOf(doc, "created_at"),
		LastLogin:    timePtrOf(doc, "last_login"),
	}
}

func purchaseFields(p models.Purchase) bson.M {
	return bson.M{
		"user_id":         p.UserID.String(),
		"symbol":          p.Symbol,
		"quantity":        decimalToString(p.Quantity),
		"price_per_share": decimalToString(p.PricePerShare),
		"commission":      decimalToString(p.Commission),
		"purchase_date":   p.PurchaseDate.Time(),
	}
}

func purchaseFromDoc(doc bson.M) models.Purchase {
	return models.Purchase{
		ID:            idOf(doc, "_id"),
		UserID:        idOf(doc, "user_id"),
		Symbol:        str(doc, "symbol"),
		Quantity:      decOf(doc, "quantity"),
		PricePerShare: decOf(doc, "price_per_share"),
		Commission:    decOf(doc, "commission"),
		PurchaseDate:  dateOf(doc, "purchase_date"),
		CreatedAt:     timeOf(doc, "created_at"),
	}
}

func stockFromDoc(doc bson.M) models.StockData {
	return models.StockData{
		Symbol:    str(doc, "symbol"),
		Price:     decOf(doc, "price"),
		Volume:    volumeOf(doc, "volume"),
		Date:      dateOf(doc, "date"),
		UpdatedAt: timeOf(doc, "updated_at"),
	}
}

func symbolFromDoc(doc bson.M) models.StockSymbol {
	return models.StockSymbol{
		Symbol:    str(doc, "symbol"),
		Name:      str(doc, "name"),
		Exchange:  str(doc, "exchange"),
		AssetType: str(doc, "asset_type"),
		IPODate:   str(doc, "ipo_date"),
		Status:    str(doc, "status"),
	}
}
