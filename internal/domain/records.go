package domain

import "time"

// ServiceRate is read-only reference data for invoice items.
type ServiceRate struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Currency string  `json:"currency,omitempty"`
}

// Document is an uploaded or generated file. Payload is opaque to the core.
// Only metadata (Category, Shared) changes after creation.
type Document struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Category          string    `json:"category,omitempty"`
	CoacheeID         *string   `json:"coacheeId"`
	IsConsentDocument bool      `json:"isConsentDocument"`
	Shared            bool      `json:"shared"`
	MimeType          string    `json:"mimeType,omitempty"`
	Payload           []byte    `json:"payload,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
}

// DocumentCategoryConsent is the category given to generated consent documents.
const DocumentCategoryConsent = "consent"

// JournalEntry is a free-form note, optionally about one coachee.
type JournalEntry struct {
	ID        string    `json:"id"`
	CoacheeID *string   `json:"coacheeId"`
	Date      time.Time `json:"date"`
	Title     string    `json:"title"`
	Content   string    `json:"content,omitempty"`
	Tags      []string  `json:"tags,omitempty"`
}

// Task is a to-do item, optionally about one coachee.
type Task struct {
	ID        string     `json:"id"`
	CoacheeID *string    `json:"coacheeId"`
	Title     string     `json:"title"`
	DueDate   *time.Time `json:"dueDate,omitempty"`
	Done      bool       `json:"done"`
}
