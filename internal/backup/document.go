// Package backup turns a device's decrypted history into a portable readable
// document and merges such documents back into the local store.
package backup

import (
	"encoding/json"
	"fmt"
	"io"

	pumpkin_errors "github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/pkg/errors"
)

const (
	Version    = "2.0.0"
	ExportType = "readable-backup"
)

// Document is the readable backup format. It carries plaintext only: no
// ciphertext and no key material.
type Document struct {
	Version       string         `json:"version"`
	ExportType    string         `json:"exportType"`
	ExportedAt    string         `json:"exportedAt"`
	ExportedBy    ExportedBy     `json:"exportedBy"`
	Metadata      Metadata       `json:"metadata"`
	Conversations []Conversation `json:"conversations"`
}

type ExportedBy struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type Metadata struct {
	TotalConversations int    `json:"totalConversations"`
	TotalMessages      int    `json:"totalMessages"`
	DeviceID           string `json:"deviceId"`
}

type Conversation struct {
	ConversationID string    `json:"conversationId"`
	Participants   []string  `json:"participants"`
	CreatedAt      string    `json:"createdAt"`
	LastMessageAt  string    `json:"lastMessageAt"`
	Messages       []Message `json:"messages"`
}

type Message struct {
	MessageID string `json:"messageId"`
	Sender    Sender `json:"sender"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
	IsOwn     bool   `json:"isOwn"`
}

type Sender struct {
	ID       string `json:"_id"`
	Username string `json:"username"`
}

// Summary reports the outcome of one import.
type Summary struct {
	ConversationsImported int      `json:"conversationsImported"`
	MessagesImported      int      `json:"messagesImported"`
	MessagesSkipped       int      `json:"messagesSkipped"`
	Errors                []string `json:"errors"`
}

// Validate checks the tags and the conversations array. A document that
// fails is rejected as a whole.
func (d *Document) Validate() error {
	if d == nil {
		return fmt.Errorf("%w: empty document", pumpkin_errors.ErrInvalidBackupFormat)
	}
	if d.Version != Version {
		return fmt.Errorf("%w: unsupported version %q", pumpkin_errors.ErrInvalidBackupFormat, d.Version)
	}
	if d.ExportType != ExportType {
		return fmt.Errorf("%w: unsupported export type %q", pumpkin_errors.ErrInvalidBackupFormat, d.ExportType)
	}
	if d.Conversations == nil {
		return fmt.Errorf("%w: missing conversations", pumpkin_errors.ErrInvalidBackupFormat)
	}
	return nil
}

// Decode reads and validates a document.
func Decode(r io.Reader) (*Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", pumpkin_errors.ErrInvalidBackupFormat, err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Encode writes doc as indented JSON.
func Encode(w io.Writer, doc *Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
