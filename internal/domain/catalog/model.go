package catalog

import (
	"time"

	"github.com/google/uuid"
)

// CareService maps to the services table: a named offering (say "Antenatal
// care") that doctors can be associated with.
type CareService struct {
	ID          uuid.UUID `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	Features    []string  `db:"features" json:"features"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

type CreateRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Features    []string `json:"features"`
}

// UpdateRequest carries the mutable fields. Nil pointers keep the stored
// value; a non-nil empty Features slice clears the list.
type UpdateRequest struct {
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	Features    *[]string `json:"features,omitempty"`
}

// AssignRequest replaces a doctor's full service association set.
type AssignRequest struct {
	ServiceIDs []uuid.UUID `json:"service_ids"`
}
