package views

import (
	"context"
	"strconv"
	"strings"

	"github.com/AdamBeresnev/op-arbiter/internal/middleware"
	"github.com/AdamBeresnev/op-arbiter/internal/tournament"
	users "github.com/AdamBeresnev/op-arbiter/internal/user"
)

func GetUser(ctx context.Context) *users.User {
	return middleware.GetAuthenticatedUser(ctx)
}

// FormatPoints prints half points the way crosstables do: 2½, ½, 3.
func FormatPoints(p float64) string {
	whole := int(p)
	half := p-float64(whole) >= 0.5
	switch {
	case half && whole == 0:
		return "½"
	case half:
		return strconv.Itoa(whole) + "½"
	}
	return strconv.Itoa(whole)
}

func FormatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func PlayerLabel(p tournament.Player) string {
	if p.Title != nil && strings.TrimSpace(*p.Title) != "" {
		return *p.Title + " " + p.Name
	}
	return p.Name
}
