package catalog

// Product is one row of the main product listing.
type Product struct {
	ID    int64    `json:"id"`
	Name  string   `json:"name"`
	Slug  string   `json:"slug"`
	Price *float64 `json:"price"`
}

// TermCount pairs a term with the number of distinct matching products.
type TermCount struct {
	Name  string `json:"name"`
	Slug  string `json:"slug"`
	Count int    `json:"count"`
}

// AttributeTaxonomy is one registered product attribute from the catalog's
// attribute registry table.
type AttributeTaxonomy struct {
	Name  string
	Label string
	Type  string
}
