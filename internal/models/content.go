package models

// Content represents a piece of creator content gated behind a micropayment.
type Content struct {
	// ID is the unique identifier for the content.
	ID string `json:"id" gorm:"column:id;primaryKey;size:64"`
	// CreatorID is the creator who owns the content.
	CreatorID string `json:"creator_id" gorm:"column:creator_id;index;not null"`
	// Title is the public title of the content.
	Title string `json:"title" gorm:"column:title;not null"`
	// Body is the gated payload, returned only after payment.
	Body string `json:"body,omitempty" gorm:"column:body"`
	// ContentType is the kind of content (article, newsletter, research, code).
	ContentType string `json:"content_type" gorm:"column:content_type;index"`
	// PriceUSD is the decimal price as entered by the creator, e.g. "0.05".
	PriceUSD string `json:"price_usd" gorm:"column:price_usd;not null"`
	// Tags is a comma-separated list of tags.
	Tags string `json:"tags" gorm:"column:tags"`
	// Excerpt is the free preview shown without payment.
	Excerpt string `json:"excerpt" gorm:"column:excerpt"`
	// CreatedAt is the Unix timestamp the content was uploaded.
	CreatedAt int64 `json:"created_at" gorm:"column:created_at;index"`
	// UpdatedAt is the Unix timestamp of the last change.
	UpdatedAt int64 `json:"updated_at" gorm:"column:updated_at"`
	// Active indicates whether the content is purchasable.
	Active bool `json:"active" gorm:"column:active;default:true"`
}

// TableName specifies the table name for GORM
func (Content) TableName() string {
	return "contents"
}

// ContentFilter narrows a content search.
type ContentFilter struct {
	Query       string
	CreatorID   string
	ContentType string
	MaxPriceUSD string
	Limit       int
}
