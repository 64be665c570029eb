package cart

// Line is a single intended purchase in a session cart: a product
// reference and how many of it. Lines carry no pricing information;
// prices are resolved against the catalog when an order is drafted.
type Line struct {
	ProductID int64 `json:"product_id" bson:"product_id"`
	Quantity  int   `json:"quantity" bson:"quantity"`
}
