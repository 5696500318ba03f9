package shop

// Button is one selectable option on a rendered screen. Data is the
// opaque token the transport echoes back as the payload of the
// follow-up event.
type Button struct {
	Label string
	Data  string
}

// Gateway is the outbound render surface. The flow owns the contract;
// the Telegram adapter implements it. A keyboard is rows of buttons and
// may be nil for plain messages.
type Gateway interface {
	SendText(chatID int64, text string, keyboard [][]Button) error
	SendPhoto(chatID int64, photoURL, caption string, keyboard [][]Button) error
	DeleteMessage(chatID int64, messageID int) error
}
