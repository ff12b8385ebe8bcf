package sandbox

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/0ad/0ad-sub001/military"
	"github.com/0ad/0ad-sub001/model"
)

type trip struct {
	units []model.EntityID
	to    model.Vec2
	eta   time.Duration
	done  bool
}

// Ferry moves a roster over water. A crossing needs a standing dock and
// takes the straight-line distance at the ferry speed; the passengers are
// out of play until they land.
type Ferry struct {
	m      *Match
	player model.PlayerID
	next   military.TransportTicket
	trips  map[military.TransportTicket]*trip
}

func newFerry(m *Match, p model.PlayerID) *Ferry {
	return &Ferry{m: m, player: p, trips: make(map[military.TransportTicket]*trip)}
}

func (f *Ferry) Request(units []model.EntityID, from, to model.Vec2) (military.TransportTicket, error) {
	if !f.hasDock() {
		return 0, fmt.Errorf("player %d has no dock: %w", f.player, military.ErrTransport)
	}
	var boarding []model.EntityID
	for _, id := range units {
		if u, ok := f.m.alive(id); ok && u.Owner == f.player && u.aboard == 0 {
			boarding = append(boarding, id)
		}
	}
	if len(boarding) == 0 {
		return 0, fmt.Errorf("no passengers among %d units: %w", len(units), military.ErrTransport)
	}
	f.next++
	t := f.next
	eta := f.m.now + time.Duration(from.Dist(to)/f.m.cfg.FerrySpeed*float64(time.Second))
	f.trips[t] = &trip{units: boarding, to: to, eta: eta}
	for _, id := range boarding {
		u := f.m.units[id]
		u.aboard = t
		u.Order = model.Order{}
	}
	slog.Info("ferry departed", "player", f.player, "ticket", t, "units", len(boarding), "eta", eta)
	return t, nil
}

// Done reports whether the trip has landed. Unknown tickets count as done.
func (f *Ferry) Done(t military.TransportTicket) bool {
	tr, ok := f.trips[t]
	return !ok || tr.done
}

func (f *Ferry) hasDock() bool {
	for _, id := range f.m.ids {
		u := f.m.units[id]
		if u.Owner == f.player && u.HP > 0 && u.Tags.Has(model.Dock) {
			return true
		}
	}
	return false
}

// land delivers the trips that have arrived by now.
func (f *Ferry) land(now time.Duration) {
	for t, tr := range f.trips {
		if tr.done || tr.eta > now {
			continue
		}
		for i, id := range tr.units {
			if u, ok := f.m.alive(id); ok {
				u.Pos = ring(tr.to, 4, i, len(tr.units))
				u.aboard = 0
			}
		}
		tr.done = true
		slog.Info("ferry landed", "player", f.player, "ticket", t, "units", len(tr.units))
	}
}
