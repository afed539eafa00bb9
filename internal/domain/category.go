package domain

// Category groups tickets by problem area and carries agent assignments.
type Category struct {
	ID          string
	Name        string
	Description string
}

// Subcategory refines a category.
type Subcategory struct {
	ID          string
	CategoryID  string
	Name        string
	Description string
}
