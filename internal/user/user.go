package users

import (
	"time"

	"github.com/google/uuid"
)

type ContextKey string

const UserKey ContextKey = "user"

// GuestID is the seeded arbiter used for guest sessions and local tooling.
var GuestID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

// User is an arbiter. Its username is recorded as the actor of every result
// change made under its session.
type User struct {
	ID         uuid.UUID `db:"id" json:"id"`
	Email      string    `db:"email" json:"email"`
	Username   string    `db:"username" json:"username"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	Provider   *string   `db:"provider" json:"provider,omitempty"`
	ProviderID *string   `db:"provider_id" json:"-"`
	AvatarURL  *string   `db:"avatar_url" json:"avatar_url,omitempty"`
}

func (u *User) IsGuest() bool {
	return u.ID == GuestID
}
