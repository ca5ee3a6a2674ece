package models

// Menu -> root dari catalog tree sebuah business
type Menu struct {
	ID         string    `json:"id" mapstructure:"id"`
	BusinessID string    `json:"business_id" mapstructure:"business_id"`
	Name       string    `json:"name" mapstructure:"name"`
	Sections   []Section `json:"sections" mapstructure:"-"`
}

// Section -> kelompok produk di dalam menu, diurutkan dengan Index
type Section struct {
	ID        string    `json:"id" mapstructure:"id"`
	MenuID    string    `json:"menu_id" mapstructure:"menu_id"`
	Name      string    `json:"name" mapstructure:"name"`
	Index     int       `json:"index" mapstructure:"index"`
	ImageURLs []string  `json:"image_urls" mapstructure:"image_urls"`
	Products  []Product `json:"products" mapstructure:"-"`
}
