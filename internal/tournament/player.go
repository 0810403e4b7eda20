package tournament

import (
	"time"

	"github.com/google/uuid"
)

type Player struct {
	ID            uuid.UUID `db:"id" json:"id"`
	TournamentID  uuid.UUID `db:"tournament_id" json:"tournament_id"`
	Name          string    `db:"name" json:"name"`
	Rating        int       `db:"rating" json:"rating"`
	Title         *string   `db:"title" json:"title,omitempty"`
	Active        bool      `db:"active" json:"active"`
	PairingNumber int       `db:"pairing_number" json:"pairing_number"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}
