package request

// CreateProductRequest represents a product creation request
type CreateProductRequest struct {
	Name  string   `json:"name" binding:"required,max=255"`
	Price *float64 `json:"price" binding:"required,gte=0,lte=1000000000"`
}

// UpdateProductRequest represents a product update request
type UpdateProductRequest struct {
	Name  *string  `json:"name" binding:"omitempty,max=255"`
	Price *float64 `json:"price" binding:"omitempty,gte=0,lte=1000000000"`
}

// ListRequest represents catalog list parameters
type ListRequest struct {
	Search  string `form:"search"`
	Page    int    `form:"page"`
	PerPage int    `form:"per_page"`
}
