package timeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/tOgg1/mxview/internal/matrix"
)

const defaultPlaceholders = 3

// Source is the read side of a live timeline the projection needs.
type Source interface {
	Events() []*matrix.Event
	EditsOf(id string) []*matrix.Event
	ReactionsOf(id string) []*matrix.Event
}

// Options tune one projection pass.
type Options struct {
	ViewerID  string
	RoomName  string
	RoomTopic string
	// ReachedStart is set once back-pagination reported no more history.
	ReachedStart bool
	GroupWindow  time.Duration
	Placeholders int
	// Location decides calendar days for dividers (default time.Local).
	Location *time.Location
	Names    NameFunc
}

// ItemKind tags a projected row.
type ItemKind int

const (
	ItemPlaceholder ItemKind = iota
	ItemIntro
	ItemDayDivider
	ItemMembership
	ItemMessage
)

// Intro is the room header shown at the start of history.
type Intro struct {
	RoomName    string
	Heading     string
	Description string
	CreatedAt   *time.Time
}

// MessageBlock is one visual message unit.
type MessageBlock struct {
	EventID   string
	SenderID  string
	Timestamp time.Time
	IsGrouped bool
	MsgType   string
	Body      Body
	Reactions []ReactionGroup
	Media     *matrix.Media
	// Encrypted marks an event the client could not decrypt.
	Encrypted bool
}

// Item is one row of the projected room view.
type Item struct {
	Kind       ItemKind
	Key        string
	Time       time.Time
	Intro      *Intro
	Membership *MembershipLine
	Message    *MessageBlock
}

// Project runs classifier, body resolver, grouping pass and reaction
// aggregator over src and returns the rows to render, oldest first.
func Project(src Source, opts Options) []Item {
	opts = opts.withDefaults()
	events := src.Events()
	items := make([]Item, 0, len(events)+opts.Placeholders+1)

	if len(events) == 0 || events[0] == nil || events[0].Type != matrix.EventRoomCreate {
		if opts.ReachedStart {
			items = append(items, Item{Kind: ItemIntro, Key: "intro", Intro: buildIntro(opts, nil)})
		} else {
			for i := 0; i < opts.Placeholders; i++ {
				items = append(items, Item{Kind: ItemPlaceholder, Key: fmt.Sprintf("placeholder-%d", i)})
			}
		}
	}

	var prev *matrix.Event
	for _, ev := range events {
		class := Classify(ev, prev)
		switch class {
		case Skip:
			continue
		case ChannelIntro:
			items = append(items, Item{Kind: ItemIntro, Key: ev.ID, Time: ev.Timestamp, Intro: buildIntro(opts, ev)})
			continue
		}

		var row Item
		switch class {
		case MembershipChange:
			line, ok := DescribeMembership(ev, opts.Names)
			if !ok {
				prev = ev
				continue
			}
			row = Item{Kind: ItemMembership, Key: ev.ID, Time: ev.Timestamp, Membership: &line}
		case Message:
			block, ok := buildBlock(src, ev, prev, opts)
			if !ok {
				continue
			}
			row = Item{Kind: ItemMessage, Key: ev.ID, Time: ev.Timestamp, Message: block}
		}

		if prev != nil && !sameDay(prev.Timestamp, ev.Timestamp, opts.Location) {
			items = append(items, Item{Kind: ItemDayDivider, Key: "divider-" + ev.ID, Time: ev.Timestamp})
		}
		items = append(items, row)
		prev = ev
	}
	return items
}

func buildBlock(src Source, ev, prev *matrix.Event, opts Options) (*MessageBlock, bool) {
	block := &MessageBlock{
		EventID:   ev.ID,
		SenderID:  ev.Sender,
		Timestamp: ev.Timestamp,
		IsGrouped: IsGrouped(prev, ev, opts.GroupWindow),
		MsgType:   ev.MsgType(),
	}
	if ev.Type == matrix.EventRoomEncrypted {
		block.Encrypted = true
	} else {
		if _, ok := ev.Body(); !ok {
			return nil, false
		}
		block.Body = ResolveBody(ev, src.EditsOf(ev.ID))
		block.Media = ev.Media()
	}
	block.Reactions = AggregateReactions(src.ReactionsOf(ev.ID), opts.ViewerID)
	return block, true
}

func buildIntro(opts Options, create *matrix.Event) *Intro {
	name := strings.TrimSpace(opts.RoomName)
	desc := fmt.Sprintf("This is the beginning of %s channel.", name)
	if topic := strings.TrimSpace(opts.RoomTopic); topic != "" {
		desc += " Topic: " + topic
	}
	intro := &Intro{
		RoomName:    name,
		Heading:     "Welcome to " + name,
		Description: desc,
	}
	if create != nil && !create.Timestamp.IsZero() {
		created := create.Timestamp
		intro.CreatedAt = &created
	}
	return intro
}

func sameDay(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}

func (o Options) withDefaults() Options {
	if o.GroupWindow <= 0 {
		o.GroupWindow = DefaultGroupWindow
	}
	if o.Placeholders <= 0 {
		o.Placeholders = defaultPlaceholders
	}
	if o.Location == nil {
		o.Location = time.Local
	}
	if o.Names == nil {
		o.Names = matrix.Localpart
	}
	return o
}
