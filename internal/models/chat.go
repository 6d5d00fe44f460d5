package models

// ChatSession groups one conversation's messages. The citation registry for
// a session is in-memory only; messages persist the numbered citations that
// were attached to each answer.
type ChatSession struct {
	Base
	Title  string      `json:"title"`
	DocIDs StringArray `json:"doc_ids" gorm:"type:text;serializer:json"`
}

func (ChatSession) TableName() string { return "chat_sessions" }

// ChatMessage is one turn of a chat session.
type ChatMessage struct {
	Base
	SessionID string `json:"session_id" gorm:"index;not null"`
	Role      string `json:"role"       gorm:"type:varchar(16);not null"` // user | assistant
	Content   string `json:"content"    gorm:"type:longtext"`
	Citations string `json:"-"          gorm:"type:longtext"` // JSON payload of numbered sources
}

func (ChatMessage) TableName() string { return "chat_messages" }
