// Package store persists the chat domain (users, chatrooms, messages,
// chatroom participants) in SQLite via GORM.
//
// Every entity shares the Base identity fields: a UUID primary key plus
// created/last-updated timestamps, serialized as id, created_date, and
// last_updated_date. Input validation lives next to the models so the API
// layer can stay thin; rejected input is reported as *ValidationError,
// missing referents wrap ErrNotFound, and uniqueness violations wrap
// ErrConflict.
//
// The store is the source of truth for the whole service. The realtime layer
// never touches it; it only ever sees fully persisted message records handed
// over by the API.
package store
