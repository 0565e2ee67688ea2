package models

// Creator represents a content creator in the system.
type Creator struct {
	// ID is the unique identifier for the creator.
	ID string `json:"id" gorm:"column:id;primaryKey;size:64"`
	// Username is the public handle of the creator.
	Username string `json:"username" gorm:"column:username;unique;not null"`
	// Email is the contact email of the creator.
	Email string `json:"email" gorm:"column:email"`
	// WalletAddress is the wallet that receives content payments.
	WalletAddress string `json:"wallet_address" gorm:"column:wallet_address;unique;not null"`
	// ContentTypes is a comma-separated list of content kinds the creator publishes.
	ContentTypes string `json:"content_types" gorm:"column:content_types"`
	// Platforms is a comma-separated list of platforms the creator publishes on.
	Platforms string `json:"platforms" gorm:"column:platforms"`
	// Bio is a short description of the creator.
	Bio string `json:"bio" gorm:"column:bio"`
	// Website is the creator's website URL.
	Website string `json:"website" gorm:"column:website"`
	// TelegramChatID is the telegram chat to notify about settlements, if set.
	TelegramChatID string `json:"telegram_chat_id,omitempty" gorm:"column:telegram_chat_id"`
	// CreatedAt is the Unix timestamp the creator was onboarded.
	CreatedAt int64 `json:"created_at" gorm:"column:created_at;index"`
	// Active indicates whether the creator profile is live.
	Active bool `json:"active" gorm:"column:active;default:true"`
}

// TableName specifies the table name for GORM
func (Creator) TableName() string {
	return "creators"
}
