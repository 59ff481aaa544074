package timeline

import (
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/tOgg1/mxview/internal/matrix"
)

// MembershipVariant tags a membership change for styling.
type MembershipVariant string

const (
	VariantJoin   MembershipVariant = "join"
	VariantLeave  MembershipVariant = "leave"
	VariantInvite MembershipVariant = "invite"
	VariantBan    MembershipVariant = "ban"
	VariantKick   MembershipVariant = "kick"
	VariantUnban  MembershipVariant = "unban"
	VariantName   MembershipVariant = "name"
	VariantAvatar MembershipVariant = "avatar"
	VariantOther  MembershipVariant = "other"
)

// MembershipLine is the one-line description of an m.room.member event.
type MembershipLine struct {
	Variant MembershipVariant
	Content string
}

// NameFunc resolves a user id into a display name.
type NameFunc func(userID string) string

// DescribeMembership renders a membership event. ok is false when the change
// has nothing worth showing (for example a re-join with identical profile).
func DescribeMembership(ev *matrix.Event, name NameFunc) (MembershipLine, bool) {
	if ev == nil || ev.Type != matrix.EventRoomMember {
		return MembershipLine{}, false
	}
	if name == nil {
		name = matrix.Localpart
	}
	sender := name(ev.Sender)
	target := ev.Target()
	targetName := name(target)
	if dn := ev.DisplayName(); dn != "" {
		targetName = dn
	}

	prev := ev.PrevContent()
	prevMembership := gjson.GetBytes(prev, "membership").String()
	prevName := gjson.GetBytes(prev, "displayname").String()
	prevAvatar := gjson.GetBytes(prev, "avatar_url").String()

	switch ev.Membership() {
	case "join":
		if prevMembership != "join" {
			return MembershipLine{VariantJoin, fmt.Sprintf("%s joined the room", targetName)}, true
		}
		if dn := ev.DisplayName(); dn != prevName {
			switch {
			case prevName == "":
				return MembershipLine{VariantName, fmt.Sprintf("%s set display name to %s", name(target), dn)}, true
			case dn == "":
				return MembershipLine{VariantName, fmt.Sprintf("%s removed display name %s", name(target), prevName)}, true
			default:
				return MembershipLine{VariantName, fmt.Sprintf("%s changed display name to %s", prevName, dn)}, true
			}
		}
		if ev.AvatarURL() != prevAvatar {
			if ev.AvatarURL() == "" {
				return MembershipLine{VariantAvatar, fmt.Sprintf("%s removed their avatar", targetName)}, true
			}
			return MembershipLine{VariantAvatar, fmt.Sprintf("%s changed their avatar", targetName)}, true
		}
		return MembershipLine{}, false
	case "invite":
		return MembershipLine{VariantInvite, fmt.Sprintf("%s invited %s", sender, targetName)}, true
	case "ban":
		return MembershipLine{VariantBan, fmt.Sprintf("%s banned %s", sender, targetName)}, true
	case "leave":
		switch {
		case prevMembership == "ban":
			return MembershipLine{VariantUnban, fmt.Sprintf("%s unbanned %s", sender, targetName)}, true
		case prevMembership == "invite" && ev.Sender == target:
			return MembershipLine{VariantLeave, fmt.Sprintf("%s rejected the invite", targetName)}, true
		case prevMembership == "invite":
			return MembershipLine{VariantLeave, fmt.Sprintf("%s withdrew the invite for %s", sender, targetName)}, true
		case ev.Sender != target && target != "":
			return MembershipLine{VariantKick, fmt.Sprintf("%s kicked %s", sender, targetName)}, true
		default:
			return MembershipLine{VariantLeave, fmt.Sprintf("%s left the room", targetName)}, true
		}
	}
	return MembershipLine{VariantOther, fmt.Sprintf("%s changed membership of %s", sender, targetName)}, true
}
