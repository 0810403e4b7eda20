package views

import (
	"context"
	"fmt"
	"io"

	"github.com/AdamBeresnev/op-arbiter/internal/service"
	"github.com/AdamBeresnev/op-arbiter/internal/tiebreak"
	"github.com/a-h/templ"
)

var methodLabels = map[tiebreak.Method]string{
	tiebreak.Buchholz:          "Buch",
	tiebreak.BuchholzCut1:      "Buch-1",
	tiebreak.Wins:              "Wins",
	tiebreak.DirectEncounter:   "DE",
	tiebreak.SonnebornBerger:   "SB",
	tiebreak.AverageRating:     "ARO",
	tiebreak.PerformanceRating: "TPR",
}

// StandingsPage renders the public standings table followed by the pairings
// of every round.
func StandingsPage(data *service.StandingsData, rounds RoundData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		e := templ.EscapeString[string]
		p := &printer{w: w}

		p.printf(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"><title>%s standings</title>`, e(data.Tournament.Name))
		p.printf(`<link rel="stylesheet" href="/static/style.css"></head><body>`)
		p.printf(`<h1>%s</h1><p class="meta">%s, round %d of %d, %s</p>`,
			e(data.Tournament.Name), e(string(data.Tournament.PairingSystem)),
			data.RoundsCompleted, data.Tournament.TotalRounds, e(string(data.Tournament.Status)))

		p.printf(`<table class="standings"><thead><tr><th>#</th><th>Player</th><th>Rtg</th><th>Pts</th>`)
		for _, m := range data.Order {
			p.printf(`<th>%s</th>`, e(methodLabels[m]))
		}
		p.printf(`</tr></thead><tbody>`)
		for _, s := range data.Standings {
			p.printf(`<tr><td>%d</td><td>%s</td><td>%d</td><td>%s</td>`,
				s.Rank, e(PlayerLabel(s.Player)), s.Player.Rating, FormatPoints(s.Points))
			for _, m := range data.Order {
				if m == tiebreak.DirectEncounter {
					de := ""
					if s.DirectEncounter != nil {
						de = FormatPoints(*s.DirectEncounter)
					}
					p.printf(`<td>%s</td>`, de)
					continue
				}
				p.printf(`<td>%s</td>`, FormatScore(s.Tiebreaks.Value(m)))
			}
			p.printf(`</tr>`)
		}
		p.printf(`</tbody></table>`)

		for i := len(rounds.RoundNums) - 1; i >= 0; i-- {
			n := rounds.RoundNums[i]
			p.printf(`<section class="round"><h2>Round %d</h2><table><tbody>`, n)
			for _, g := range rounds.Rounds[n] {
				white := g.WhiteID
				p.printf(`<tr><td>%d</td><td>%s</td><td class="result">%s</td><td>%s</td></tr>`,
					g.Board, e(rounds.Name(&white)), e(string(g.Result)), e(rounds.Name(g.BlackID)))
			}
			p.printf(`</tbody></table></section>`)
		}

		p.printf(`</body></html>`)
		return p.err
	})
}

// printer keeps the first write error so the component body stays linear.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}
