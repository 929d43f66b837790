package domain

// Category buckets an inventory item for the UI filters.
type Category string

const (
	CategoryGroceries Category = "Groceries"
	CategoryFood      Category = "Food"
	CategoryMedicine  Category = "Medicine"
	CategoryCosmetics Category = "Cosmetics"
	CategoryOthers    Category = "Others"
)

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryGroceries, CategoryFood, CategoryMedicine, CategoryCosmetics, CategoryOthers:
		return true
	}
	return false
}

// InventoryItem is one tracked consumable. The inventory provider owns the
// record; classification treats it as immutable input per evaluation cycle.
type InventoryItem struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	ExpiryDate Date     `json:"expiryDate"`
	Category   Category `json:"category"`
}
