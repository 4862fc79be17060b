package models

// Worker is a service-provider record listed in the marketplace catalog.
// The catalog backend owns these records; this process only reads them.
type Worker struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Category        string   `json:"category"`
	Service         string   `json:"service,omitempty"`
	Rating          float64  `json:"rating,omitempty"`
	Price           float64  `json:"price,omitempty"`
	Phone           string   `json:"phone,omitempty"`
	ProfileImageURL string   `json:"profileImageUrl,omitempty"`
	Languages       []string `json:"languages,omitempty"`
}

// CartItem converts a catalog worker into the cart line-item shape.
func (w Worker) CartItem() CartItem {
	return CartItem{
		ID:              w.ID,
		Name:            w.Name,
		ProfileImageURL: w.ProfileImageURL,
		Service:         w.Service,
		Rating:          w.Rating,
		Price:           w.Price,
		Phone:           w.Phone,
		Category:        w.Category,
	}
}

// Category groups workers offering the same kind of event service.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon,omitempty"`
}
