package models

// Phrase is a translatable text snippet keyed by title. Category titles
// and the notification templates resolve through phrases rather than
// storing plain text on the owning row.
type Phrase struct {
	ID    int64  `json:"phrase_id"`
	Title string `json:"title"`
	Text  string `json:"phrase_text"`
}
