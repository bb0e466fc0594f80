package client

// Tag groups cached queries so writes can invalidate them. An empty ID
// matches every query of that type.
type Tag struct {
	Type string
	ID   string
}

// Tag types used by the query cache.
const (
	TagPurchase  = "Purchase"
	TagDashboard = "Dashboard"
	TagStock     = "Stock"
	TagSearch    = "Search"
)

func tagOf(typ string) Tag { return Tag{Type: typ} }

func stockTag(symbol string) Tag { return Tag{Type: TagStock, ID: symbol} }

func (t Tag) prefix() string {
	if t.ID == "" {
		return t.Type + "|"
	}
	return t.Type + "|" + t.ID + "|"
}

func (t Tag) key(target string) string {
	return t.prefix() + target
}

// purchaseWrites are the tags every purchase mutation invalidates.
var purchaseWrites = []Tag{tagOf(TagPurchase), tagOf(TagDashboard), tagOf(TagStock)}
