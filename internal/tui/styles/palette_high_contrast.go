package styles

// HighContrastTheme favors legibility on low-quality terminals.
var HighContrastTheme = Theme{
	Name:        "high-contrast",
	BorderStyle: "sharp",
	Base: BaseColors{
		Background: "16",
		Foreground: "231",
		Muted:      "250",
		Accent:     "51",
		Border:     "231",
	},
	Message: MessageColors{
		Own:       "87",
		Other:     "225",
		System:    "229",
		Encrypted: "223",
		Edited:    "250",
	},
	Reaction: ReactionColors{
		Active:   "51",
		Inactive: "250",
	},
	Notification: NotificationColors{
		Unread:    "231",
		Highlight: "196",
		Muted:     "250",
	},
	Chrome: ChromeColors{
		Header:       "231",
		Footer:       "231",
		Breadcrumb:   "229",
		SelectedItem: "51",
		Scrollbar:    "231",
	},
	Borders: BorderColors{
		ActivePane:   "51",
		InactivePane: "250",
		Divider:      "250",
	},
}
