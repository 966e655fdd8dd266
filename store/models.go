package store

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ValidationError reports rejected input. Its message is safe to echo back
// to clients.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalidf(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// identPattern constrains handles and chatroom names after lowercasing.
var identPattern = regexp.MustCompile(`^[a-z0-9_]+$`)

// Base carries the identity and audit fields shared by every entity. The
// JSON field names are part of the wire contract, including the new_message
// fan-out payload.
type Base struct {
	ID              string    `gorm:"primaryKey;size:36" json:"id"`
	CreatedDate     time.Time `gorm:"autoCreateTime" json:"created_date"`
	LastUpdatedDate time.Time `gorm:"autoUpdateTime" json:"last_updated_date"`
}

// BeforeCreate assigns a UUID when none was provided.
func (b *Base) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}

// User is a chat participant identity. Handles are unique, lowercased, and
// restricted to [a-z0-9_].
type User struct {
	Base
	Name   string `gorm:"size:255;not null" json:"name"`
	Handle string `gorm:"size:50;not null;uniqueIndex" json:"handle"`
}

// NormalizeHandle lowercases, trims, and validates a user handle.
func NormalizeHandle(handle string) (string, error) {
	handle = strings.ToLower(strings.TrimSpace(handle))
	if handle == "" {
		return "", invalidf("handle cannot be empty")
	}
	if len(handle) > 50 {
		return "", invalidf("handle cannot exceed 50 characters")
	}
	if !identPattern.MatchString(handle) {
		return "", invalidf("handle can only contain lowercase letters, numbers, and underscores")
	}
	return handle, nil
}

func validateUserName(name string) error {
	if name == "" {
		return invalidf("name cannot be empty")
	}
	if len(name) > 255 {
		return invalidf("name cannot exceed 255 characters")
	}
	return nil
}

// Chatroom is a named room. Names follow the same rules as handles, capped
// at 100 characters.
type Chatroom struct {
	Base
	Name string `gorm:"size:100;not null;uniqueIndex" json:"name"`
}

// NormalizeChatroomName lowercases, trims, and validates a chatroom name.
func NormalizeChatroomName(name string) (string, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return "", invalidf("name cannot be empty")
	}
	if len(name) > 100 {
		return "", invalidf("name cannot exceed 100 characters")
	}
	if !identPattern.MatchString(name) {
		return "", invalidf("name can only contain lowercase letters, numbers, and underscores")
	}
	return name, nil
}

// Message is one chat message, optionally a reply to another message in the
// same chatroom. Its JSON form is exactly the new_message event payload.
type Message struct {
	Base
	MessageText     string  `gorm:"size:1024;not null" json:"message_text"`
	UserID          string  `gorm:"size:36;not null;index" json:"user_id"`
	ChatroomID      string  `gorm:"size:36;not null;index" json:"chatroom_id"`
	IsReply         bool    `gorm:"not null;default:false" json:"is_reply"`
	ParentMessageID *string `gorm:"size:36;index" json:"parent_message_id"`
}

func validateMessageText(text string) error {
	if text == "" {
		return invalidf("message text cannot be empty")
	}
	if strings.TrimSpace(text) == "" {
		return invalidf("message text cannot be only whitespace")
	}
	if len(text) > 1024 {
		return invalidf("message text cannot exceed 1024 characters")
	}
	return nil
}

func validateReply(isReply bool, parentID *string) error {
	if isReply && (parentID == nil || *parentID == "") {
		return invalidf("parent_message_id is required when is_reply is true")
	}
	if !isReply && parentID != nil && *parentID != "" {
		return invalidf("parent_message_id should only be set when is_reply is true")
	}
	return nil
}

// ChatroomParticipant links a user to a chatroom. Each pair exists at most
// once.
type ChatroomParticipant struct {
	Base
	UserID     string `gorm:"size:36;not null;uniqueIndex:idx_participant_user_chatroom" json:"user_id"`
	ChatroomID string `gorm:"size:36;not null;uniqueIndex:idx_participant_user_chatroom" json:"chatroom_id"`
}
