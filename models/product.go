package models

type Product struct {
	ID              string  `json:"id" mapstructure:"id"`
	SectionID       string  `json:"section_id" mapstructure:"section_id"`
	Name            string  `json:"name" mapstructure:"name"`
	Description     string  `json:"description" mapstructure:"description"`
	OriginalPrice   float64 `json:"original_price" mapstructure:"original_price"`
	FinalPrice      float64 `json:"final_price" mapstructure:"final_price"`
	DiscountPercent float64 `json:"discount_percent" mapstructure:"discount_percent"`
	Stock           int     `json:"stock" mapstructure:"stock"`
	Available       bool    `json:"available" mapstructure:"available"`
	Enabled         bool    `json:"enabled" mapstructure:"enabled"`

	// Flag pemesanan
	Orderable  bool `json:"orderable" mapstructure:"orderable"`
	AllowNotes bool `json:"allow_notes" mapstructure:"allow_notes"`

	OptionGroups []OptionGroup `json:"option_groups" mapstructure:"-"`
}

// OptionGroup -> grup pilihan/add-on sebuah produk (mis. "Level pedas")
type OptionGroup struct {
	ID           string   `json:"id" mapstructure:"id"`
	ProductID    string   `json:"product_id" mapstructure:"product_id"`
	Name         string   `json:"name" mapstructure:"name"`
	MinQuantity  int      `json:"min_quantity" mapstructure:"min_quantity"`
	MaxQuantity  int      `json:"max_quantity" mapstructure:"max_quantity"`
	QuantityType string   `json:"quantity_type" mapstructure:"quantity_type"`
	Options      []Option `json:"options" mapstructure:"-"`
}

type Option struct {
	ID          string  `json:"id" mapstructure:"id"`
	GroupID     string  `json:"group_id" mapstructure:"group_id"`
	Name        string  `json:"name" mapstructure:"name"`
	InStock     bool    `json:"in_stock" mapstructure:"in_stock"`
	MaxQuantity int     `json:"max_quantity" mapstructure:"max_quantity"`
	FinalPrice  float64 `json:"final_price" mapstructure:"final_price"`
}
