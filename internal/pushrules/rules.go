// Package pushrules reads and edits the keyword notification rules stored
// in the m.push_rules account data event.
package pushrules

import (
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/tidwall/gjson"
)

// AccountDataType is the account data event holding the rules.
const AccountDataType = "m.push_rules"

// Rule ids of the server-default rules the keyword settings manage.
const (
	RuleDisplayName = ".m.rule.contains_display_name"
	RuleRoomPing    = ".m.rule.roomnotif"
	RuleUsername    = ".m.rule.contains_user_name"
	// RuleKeyword stands for every user-defined keyword content rule.
	RuleKeyword = "keyword"
)

// Mode is how a matching message notifies.
type Mode string

const (
	ModeOff   Mode = "off"
	ModeOn    Mode = "on"
	ModeNoisy Mode = "noisy"
)

// Label is the human-readable name of the mode.
func (m Mode) Label() string {
	switch m {
	case ModeOff:
		return "Off"
	case ModeOn:
		return "On"
	case ModeNoisy:
		return "Noisy"
	default:
		return string(m)
	}
}

// ParseMode accepts off, on or noisy.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeOff, ModeOn, ModeNoisy:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown notification mode %q (want off, on or noisy)", s)
}

// Condition is a push rule condition.
type Condition struct {
	Kind    string `json:"kind"`
	Key     string `json:"key,omitempty"`
	Pattern string `json:"pattern,omitempty"`
}

// Rule is one override or content push rule. Actions are kept raw because
// they mix bare strings and tweak objects.
type Rule struct {
	RuleID     string            `json:"rule_id"`
	Default    bool              `json:"default"`
	Enabled    bool              `json:"enabled"`
	Pattern    string            `json:"pattern,omitempty"`
	Conditions []Condition       `json:"conditions,omitempty"`
	Actions    []json.RawMessage `json:"actions"`
}

// Ruleset is the global push rule set. Kinds this package does not edit are
// carried through untouched.
type Ruleset struct {
	Override  []*Rule         `json:"override"`
	Content   []*Rule         `json:"content"`
	Room      json.RawMessage `json:"room,omitempty"`
	Sender    json.RawMessage `json:"sender,omitempty"`
	Underride json.RawMessage `json:"underride,omitempty"`
}

// PushRules is the content of the m.push_rules event.
type PushRules struct {
	Global Ruleset `json:"global"`
}

// Parse decodes m.push_rules content. Empty input yields an empty set.
func Parse(data []byte) (*PushRules, error) {
	rules := &PushRules{}
	if len(data) > 0 && string(data) != "null" {
		if err := json.Unmarshal(data, rules); err != nil {
			return nil, fmt.Errorf("decode push rules: %w", err)
		}
	}
	if rules.Global.Override == nil {
		rules.Global.Override = []*Rule{}
	}
	if rules.Global.Content == nil {
		rules.Global.Content = []*Rule{}
	}
	return rules, nil
}

// ModeOf derives the notification mode from a rule's actions.
func ModeOf(rule *Rule) Mode {
	if rule == nil {
		return ModeOff
	}
	notify := false
	for _, raw := range rule.Actions {
		action := gjson.ParseBytes(raw)
		switch {
		case action.Get("set_tweak").String() == "sound":
			return ModeNoisy
		case action.Get("set_tweak").String() == "highlight":
			notify = true
		case action.Type == gjson.String && action.String() == "notify":
			notify = true
		}
	}
	if notify {
		return ModeOn
	}
	return ModeOff
}

// ActionsFor builds the action list for mode.
func ActionsFor(mode Mode, highlight bool) []json.RawMessage {
	if mode == ModeOff {
		return []json.RawMessage{}
	}
	actions := []json.RawMessage{json.RawMessage(`"notify"`)}
	if mode == ModeNoisy {
		actions = append(actions, json.RawMessage(`{"set_tweak":"sound","value":"default"}`))
	}
	hl := `{"set_tweak":"highlight","value":false}`
	if highlight {
		hl = `{"set_tweak":"highlight","value":true}`
	}
	return append(actions, json.RawMessage(hl))
}

// Modes reports the current mode of each managed rule. RuleKeyword is only
// present when at least one keyword exists. Missing default rules report
// noisy, which is what servers ship.
func (p *PushRules) Modes() map[string]Mode {
	modes := map[string]Mode{
		RuleDisplayName: ModeNoisy,
		RuleRoomPing:    ModeNoisy,
		RuleUsername:    ModeNoisy,
	}
	if r := find(p.Global.Override, RuleDisplayName); r != nil {
		modes[RuleDisplayName] = ModeOf(r)
	}
	if r := find(p.Global.Override, RuleRoomPing); r != nil {
		modes[RuleRoomPing] = ModeOf(r)
	}
	if r := find(p.Global.Content, RuleUsername); r != nil {
		modes[RuleUsername] = ModeOf(r)
	}
	if kws := p.Keywords(); len(kws) > 0 {
		modes[RuleKeyword] = ModeOf(kws[0])
	}
	return modes
}

// Keywords returns the user-defined keyword content rules.
func (p *PushRules) Keywords() []*Rule {
	var out []*Rule
	for _, r := range p.Global.Content {
		if r != nil && r.RuleID != RuleUsername {
			out = append(out, r)
		}
	}
	return out
}

var userIDPattern = regexp.MustCompile(`^@?(\S+):(\S+)$`)

// SetMode changes the mode of one managed rule, creating the server-default
// rule when it is missing. RuleKeyword changes every keyword rule.
func (p *PushRules) SetMode(ruleID string, mode Mode, userID string) error {
	switch ruleID {
	case RuleDisplayName, RuleRoomPing:
		rule := find(p.Global.Override, ruleID)
		if rule == nil {
			rule = &Rule{RuleID: ruleID, Default: true, Enabled: true}
			p.Global.Override = append(p.Global.Override, rule)
		}
		if ruleID == RuleDisplayName {
			rule.Conditions = []Condition{{Kind: "contains_display_name"}}
		} else {
			rule.Conditions = []Condition{
				{Kind: "event_match", Key: "content.body", Pattern: "@room"},
				{Kind: "sender_notification_permission", Key: "room"},
			}
		}
		rule.Actions = ActionsFor(mode, true)
	case RuleUsername:
		rule := find(p.Global.Content, ruleID)
		if rule == nil {
			username := userID
			if m := userIDPattern.FindStringSubmatch(userID); m != nil {
				username = m[1]
			}
			rule = &Rule{RuleID: ruleID, Default: true, Enabled: true, Pattern: username}
			p.Global.Content = append(p.Global.Content, rule)
		}
		rule.Actions = ActionsFor(mode, true)
	case RuleKeyword:
		for _, rule := range p.Keywords() {
			rule.Actions = ActionsFor(mode, true)
		}
	default:
		return fmt.Errorf("unknown keyword rule %q", ruleID)
	}
	return nil
}

// AddKeyword appends a noisy keyword rule. It reports false when the keyword
// already exists.
func (p *PushRules) AddKeyword(keyword string) bool {
	if keyword == "" || find(p.Global.Content, keyword) != nil {
		return false
	}
	mode := ModeNoisy
	if kws := p.Keywords(); len(kws) > 0 {
		mode = ModeOf(kws[0])
	}
	p.Global.Content = append(p.Global.Content, &Rule{
		RuleID:  keyword,
		Pattern: keyword,
		Enabled: true,
		Actions: ActionsFor(mode, true),
	})
	return true
}

// RemoveKeyword drops the keyword rule with id ruleID.
func (p *PushRules) RemoveKeyword(ruleID string) bool {
	if ruleID == RuleUsername {
		return false
	}
	kept := p.Global.Content[:0]
	removed := false
	for _, r := range p.Global.Content {
		if r != nil && r.RuleID == ruleID {
			removed = true
			continue
		}
		kept = append(kept, r)
	}
	p.Global.Content = kept
	return removed
}

func find(rules []*Rule, id string) *Rule {
	for _, r := range rules {
		if r != nil && r.RuleID == id {
			return r
		}
	}
	return nil
}
