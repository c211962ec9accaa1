package styles

// DefaultTheme is the baseline dark palette.
var DefaultTheme = Theme{
	Name:        "default",
	BorderStyle: "rounded",
	PeerPalette: append([]string(nil), PeerColorPalette...),
	Base: BaseColors{
		Background: "234",
		Foreground: "252",
		Muted:      "245",
		Accent:     "205",
		Border:     "240",
	},
	Message: MessageColors{
		Own:     "211",
		Other:   "147",
		Pending: "244",
		Deleted: "240",
	},
	Status: StatusColors{
		Online:  "41",
		Offline: "203",
		Loading: "220",
		Error:   "203",
	},
	Chrome: ChromeColors{
		Header:       "212",
		Footer:       "110",
		SelectedItem: "205",
	},
	Borders: BorderColors{
		ActivePane:   "205",
		InactivePane: "240",
	},
}
