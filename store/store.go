package store

import (
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var (
	// ErrNotFound is wrapped with the entity name, e.g. "user not found".
	ErrNotFound = errors.New("not found")

	// ErrConflict is wrapped with the conflicting value.
	ErrConflict = errors.New("already exists")
)

// Store wraps the database handle with the operations the API layer needs.
type Store struct {
	db     *gorm.DB
	logger *slog.Logger
}

// Open opens the SQLite database at path, creating the file if needed.
// Use ":memory:" for an ephemeral database in tests.
func Open(path string, logger *slog.Logger) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	return &Store{db: db, logger: logger}, nil
}

// Migrate creates or updates the schema for all entities.
func (s *Store) Migrate() error {
	return s.db.AutoMigrate(&User{}, &Chatroom{}, &Message{}, &ChatroomParticipant{})
}

// Users

// CreateUser validates, normalizes, and persists a new user.
func (s *Store) CreateUser(name, handle string) (*User, error) {
	if err := validateUserName(name); err != nil {
		return nil, err
	}
	normalized, err := NormalizeHandle(handle)
	if err != nil {
		return nil, err
	}

	user := &User{Name: name, Handle: normalized}
	if err := s.db.Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("handle %q %w", normalized, ErrConflict)
		}
		return nil, err
	}
	s.logger.Info("user created", "user_id", user.ID, "handle", user.Handle)
	return user, nil
}

// GetUser fetches a user by ID.
func (s *Store) GetUser(id string) (*User, error) {
	var user User
	if err := s.db.First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user %w", ErrNotFound)
		}
		return nil, err
	}
	return &user, nil
}

// ListUsers returns all users.
func (s *Store) ListUsers() ([]User, error) {
	var users []User
	if err := s.db.Order("created_date").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// UpdateUserHandle changes a user's handle, applying the same normalization
// as creation.
func (s *Store) UpdateUserHandle(id, handle string) (*User, error) {
	normalized, err := NormalizeHandle(handle)
	if err != nil {
		return nil, err
	}

	user, err := s.GetUser(id)
	if err != nil {
		return nil, err
	}
	user.Handle = normalized
	if err := s.db.Save(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("handle %q %w", normalized, ErrConflict)
		}
		return nil, err
	}
	return user, nil
}

// DeleteUser removes a user by ID.
func (s *Store) DeleteUser(id string) error {
	res := s.db.Delete(&User{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("user %w", ErrNotFound)
	}
	return nil
}

// Chatrooms

// CreateChatroom validates, normalizes, and persists a new chatroom.
func (s *Store) CreateChatroom(name string) (*Chatroom, error) {
	normalized, err := NormalizeChatroomName(name)
	if err != nil {
		return nil, err
	}

	room := &Chatroom{Name: normalized}
	if err := s.db.Create(room).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("chatroom %q %w", normalized, ErrConflict)
		}
		return nil, err
	}
	s.logger.Info("chatroom created", "chatroom_id", room.ID, "name", room.Name)
	return room, nil
}

// GetChatroom fetches a chatroom by ID.
func (s *Store) GetChatroom(id string) (*Chatroom, error) {
	var room Chatroom
	if err := s.db.First(&room, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("chatroom %w", ErrNotFound)
		}
		return nil, err
	}
	return &room, nil
}

// ListChatrooms returns all chatrooms.
func (s *Store) ListChatrooms() ([]Chatroom, error) {
	var rooms []Chatroom
	if err := s.db.Order("created_date").Find(&rooms).Error; err != nil {
		return nil, err
	}
	return rooms, nil
}

// RenameChatroom changes a chatroom's name with the usual normalization.
func (s *Store) RenameChatroom(id, name string) (*Chatroom, error) {
	normalized, err := NormalizeChatroomName(name)
	if err != nil {
		return nil, err
	}

	room, err := s.GetChatroom(id)
	if err != nil {
		return nil, err
	}
	room.Name = normalized
	if err := s.db.Save(room).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("chatroom %q %w", normalized, ErrConflict)
		}
		return nil, err
	}
	return room, nil
}

// DeleteChatroom removes a chatroom by ID.
func (s *Store) DeleteChatroom(id string) error {
	res := s.db.Delete(&Chatroom{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("chatroom %w", ErrNotFound)
	}
	return nil
}

// Messages

// MessageInput is the payload for CreateMessage.
type MessageInput struct {
	MessageText     string  `json:"message_text"`
	UserID          string  `json:"user_id"`
	ChatroomID      string  `json:"chatroom_id"`
	IsReply         bool    `json:"is_reply"`
	ParentMessageID *string `json:"parent_message_id"`
}

// CreateMessage validates the input, checks that the user, chatroom, and
// (for replies) parent message exist, and persists the message.
func (s *Store) CreateMessage(in MessageInput) (*Message, error) {
	if err := validateMessageText(in.MessageText); err != nil {
		return nil, err
	}
	if err := validateReply(in.IsReply, in.ParentMessageID); err != nil {
		return nil, err
	}

	if _, err := s.GetUser(in.UserID); err != nil {
		return nil, err
	}
	if _, err := s.GetChatroom(in.ChatroomID); err != nil {
		return nil, err
	}
	if in.IsReply {
		var parent Message
		if err := s.db.First(&parent, "id = ?", *in.ParentMessageID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("parent message %w", ErrNotFound)
			}
			return nil, err
		}
	}

	msg := &Message{
		MessageText:     in.MessageText,
		UserID:          in.UserID,
		ChatroomID:      in.ChatroomID,
		IsReply:         in.IsReply,
		ParentMessageID: in.ParentMessageID,
	}
	if err := s.db.Create(msg).Error; err != nil {
		return nil, err
	}
	s.logger.Info("message created", "message_id", msg.ID, "chatroom_id", msg.ChatroomID, "user_id", msg.UserID)
	return msg, nil
}

// GetMessage fetches a message by ID.
func (s *Store) GetMessage(id string) (*Message, error) {
	var msg Message
	if err := s.db.First(&msg, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("message %w", ErrNotFound)
		}
		return nil, err
	}
	return &msg, nil
}

// ListMessagesByChatroom returns the chatroom's messages oldest first. The
// chatroom must exist.
func (s *Store) ListMessagesByChatroom(chatroomID string) ([]Message, error) {
	if _, err := s.GetChatroom(chatroomID); err != nil {
		return nil, err
	}
	var msgs []Message
	if err := s.db.Where("chatroom_id = ?", chatroomID).Order("created_date").Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}

// DeleteMessage removes a message by ID.
func (s *Store) DeleteMessage(id string) error {
	res := s.db.Delete(&Message{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("message %w", ErrNotFound)
	}
	return nil
}

// ListChatroomsByUser returns the chatrooms the user participates in,
// joined through the enrollment table. The user must exist.
func (s *Store) ListChatroomsByUser(userID string) ([]Chatroom, error) {
	if _, err := s.GetUser(userID); err != nil {
		return nil, err
	}
	var rooms []Chatroom
	err := s.db.
		Joins("JOIN chatroom_participants ON chatroom_participants.chatroom_id = chatrooms.id").
		Where("chatroom_participants.user_id = ?", userID).
		Order("chatrooms.created_date").
		Find(&rooms).Error
	if err != nil {
		return nil, err
	}
	return rooms, nil
}

// ListUsersByChatroom returns the users enrolled in the chatroom, joined
// through the enrollment table. The chatroom must exist.
func (s *Store) ListUsersByChatroom(chatroomID string) ([]User, error) {
	if _, err := s.GetChatroom(chatroomID); err != nil {
		return nil, err
	}
	var users []User
	err := s.db.
		Joins("JOIN chatroom_participants ON chatroom_participants.user_id = users.id").
		Where("chatroom_participants.chatroom_id = ?", chatroomID).
		Order("users.created_date").
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

// Participants

// AddParticipant enrolls a user in a chatroom. Both must exist, and a user
// can be enrolled in a given chatroom only once.
func (s *Store) AddParticipant(userID, chatroomID string) (*ChatroomParticipant, error) {
	if _, err := s.GetUser(userID); err != nil {
		return nil, err
	}
	if _, err := s.GetChatroom(chatroomID); err != nil {
		return nil, err
	}

	p := &ChatroomParticipant{UserID: userID, ChatroomID: chatroomID}
	if err := s.db.Create(p).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("participant %w", ErrConflict)
		}
		return nil, err
	}
	return p, nil
}

// RemoveParticipant removes a user's enrollment in a chatroom.
func (s *Store) RemoveParticipant(userID, chatroomID string) error {
	res := s.db.Delete(&ChatroomParticipant{}, "user_id = ? AND chatroom_id = ?", userID, chatroomID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("participant %w", ErrNotFound)
	}
	return nil
}

// RemoveParticipantByID removes an enrollment by its own ID.
func (s *Store) RemoveParticipantByID(id string) error {
	res := s.db.Delete(&ChatroomParticipant{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("participant %w", ErrNotFound)
	}
	return nil
}

// ListParticipantsByChatroom returns all enrollments for a chatroom, which
// must exist.
func (s *Store) ListParticipantsByChatroom(chatroomID string) ([]ChatroomParticipant, error) {
	if _, err := s.GetChatroom(chatroomID); err != nil {
		return nil, err
	}
	var parts []ChatroomParticipant
	if err := s.db.Where("chatroom_id = ?", chatroomID).Order("created_date").Find(&parts).Error; err != nil {
		return nil, err
	}
	return parts, nil
}
