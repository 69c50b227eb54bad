package conversation

// ReplyKind tells the transport how to present a Reply.
type ReplyKind int

const (
	// ReplyOptions is a text with a keyboard of options.
	ReplyOptions ReplyKind = iota
	// ReplyDetail is a product view. Image holds the picture when the product has one.
	ReplyDetail
	// ReplyPrompt asks the user to type an answer.
	ReplyPrompt
)

func (k ReplyKind) String() string {
	switch k {
	case ReplyOptions:
		return "options"
	case ReplyDetail:
		return "detail"
	case ReplyPrompt:
		return "prompt"
	default:
		return "unknown"
	}
}

// Option is a button. Token is sent back as the callback payload when pressed.
type Option struct {
	Label string
	Token string
}

// Reply is a transport independent description of the message to show.
type Reply struct {
	Kind  ReplyKind
	Text  string
	Image []byte
	Rows  [][]Option
}

// Tokens returns all option tokens in display order.
func (r Reply) Tokens() []string {
	var tokens []string
	for _, row := range r.Rows {
		for _, o := range row {
			tokens = append(tokens, o.Token)
		}
	}

	return tokens
}
