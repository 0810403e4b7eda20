package tournament

import (
	"time"

	"github.com/google/uuid"
)

type RoundStatus string

const (
	RoundPending    RoundStatus = "pending"
	RoundPaired     RoundStatus = "paired"
	RoundInProgress RoundStatus = "in_progress"
	RoundCompleted  RoundStatus = "completed"
)

type Round struct {
	ID           uuid.UUID   `db:"id" json:"id"`
	TournamentID uuid.UUID   `db:"tournament_id" json:"tournament_id"`
	Number       int         `db:"number" json:"number"`
	Status       RoundStatus `db:"status" json:"status"`
	CreatedAt    time.Time   `db:"created_at" json:"created_at"`
}

// Locked reports whether a result has been submitted in the round.
func (r *Round) Locked() bool {
	return r.Status == RoundInProgress || r.Status == RoundCompleted
}

// StatusAfterSubmission derives the status of a round once a result has
// been submitted in it. A submitted round never returns to paired.
func StatusAfterSubmission(games []Game) RoundStatus {
	for i := range games {
		if !games[i].IsFinal() {
			return RoundInProgress
		}
	}
	return RoundCompleted
}
