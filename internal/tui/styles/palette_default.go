package styles

// DefaultTheme is the baseline dark palette.
var DefaultTheme = Theme{
	Name:          "default",
	BorderStyle:   "rounded",
	SenderPalette: append([]string(nil), SenderColorPalette...),
	Base: BaseColors{
		Background: "234",
		Foreground: "252",
		Muted:      "245",
		Accent:     "75",
		Border:     "240",
	},
	Message: MessageColors{
		Own:       "81",
		Other:     "147",
		System:    "214",
		Encrypted: "180",
		Edited:    "243",
	},
	Reaction: ReactionColors{
		Active:   "75",
		Inactive: "240",
	},
	Notification: NotificationColors{
		Unread:    "252",
		Highlight: "203",
		Muted:     "243",
	},
	Chrome: ChromeColors{
		Header:       "111",
		Footer:       "110",
		Breadcrumb:   "109",
		SelectedItem: "75",
		Scrollbar:    "246",
	},
	Borders: BorderColors{
		ActivePane:   "75",
		InactivePane: "240",
		Divider:      "238",
	},
}
