// Package taxonomy holds the static category/subcategory tree that defines
// the universe of valid classification values for both ad creation and
// search filtering. The tree is immutable and built once at startup.
package taxonomy

type Category struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Subcategories []string `json:"subcategories"`
}

type Tree struct {
	categories []Category
	index      map[string]map[string]struct{}
}

// Default returns the marketplace's category tree.
func Default() *Tree {
	return New([]Category{
		{ID: "jobs", Name: "Jobs", Subcategories: []string{
			"Full-time", "Part-time", "Freelance", "Internships", "Temporary", "Other",
		}},
		{ID: "real_estate_renting", Name: "Real Estate Renting", Subcategories: []string{
			"Rooms", "Flats", "Houses", "Holiday Rentals", "Offices", "Parking Places", "Garages", "Other",
		}},
		{ID: "real_estate_selling", Name: "Real Estate Selling", Subcategories: []string{
			"Flats", "Houses", "Offices", "Parking Places", "Garages", "Land", "Commercial", "Other",
		}},
		{ID: "vehicles", Name: "Vehicles", Subcategories: []string{
			"Cars", "Trucks", "Boats", "Jet Ski", "Motorcycles", "Bicycles", "Accessories", "Caravans", "Other",
		}},
		{ID: "sales_of_products", Name: "Sales of Products", Subcategories: []string{
			"Electronics", "Furniture", "Clothing", "Books", "Home & Garden", "Sports & Outdoors", "Toys & Games", "Other",
		}},
		{ID: "services", Name: "Services", Subcategories: []string{
			"Home Services", "Professional Services", "Tutoring", "Beauty & Wellness", "Event Services", "Repair Services", "Other",
		}},
	})
}

func New(categories []Category) *Tree {
	index := make(map[string]map[string]struct{}, len(categories))
	for _, c := range categories {
		subs := make(map[string]struct{}, len(c.Subcategories))
		for _, s := range c.Subcategories {
			subs[s] = struct{}{}
		}
		index[c.ID] = subs
	}
	return &Tree{categories: categories, index: index}
}

// List returns the categories in their display order. The returned slice is
// shared; callers must not mutate it.
func (t *Tree) List() []Category {
	return t.categories
}

// IsValid reports whether category exists and, when subcategory is non-empty,
// whether it belongs to that category. Unknown values fail closed.
func (t *Tree) IsValid(category, subcategory string) bool {
	subs, ok := t.index[category]
	if !ok {
		return false
	}
	if subcategory == "" {
		return true
	}
	_, ok = subs[subcategory]
	return ok
}
