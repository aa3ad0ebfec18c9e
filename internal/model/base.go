package model

import "github.com/google/uuid"

// ensureID assigns a fresh UUID when the primary key has not been set by the caller.
// IDs are generated in-process so inserts behave the same on every gorm dialect.
func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
