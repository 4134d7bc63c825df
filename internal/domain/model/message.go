// Package model contains the shapes exchanged with the Ech0 backend.
//
// Every type here is a plain snapshot decoded from a response body or
// encoded into a request body; none of them has mutation methods.
package model

import "time"

// Message is a published message as returned by the backend.
type Message struct {
	ID        uint      `json:"id"`
	Content   string    `json:"content"`
	Username  string    `json:"username,omitempty"`
	ImageURL  string    `json:"image_url,omitempty"`
	Private   bool      `json:"private"`
	CreatedAt time.Time `json:"created_at"`
	Pinned    *bool     `json:"pinned,omitempty"`
}

// IsPinned reports whether the backend marked the message as pinned.
func (m Message) IsPinned() bool {
	return m.Pinned != nil && *m.Pinned
}

// MessageToSave is the payload for creating a message.
type MessageToSave struct {
	Username string `json:"username,omitempty"`
	Content  string `json:"content"`
	ImageURL string `json:"image_url,omitempty"`
	Private  bool   `json:"private"`
	// Notify asks the backend to fan the message out to its notifiers.
	Notify bool `json:"notify"`
}

// Tag is a hashtag with the number of messages using it.
type Tag struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// ImageInfo references an image attached to, or embedded in, a message.
type ImageInfo struct {
	ID        uint      `json:"id"`
	ImageURL  string    `json:"image_url"`
	CreatedAt time.Time `json:"created_at"`
}
