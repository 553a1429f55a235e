package conversation

// EventKind distinguishes how the guest reached us.
type EventKind int

const (
	KindText EventKind = iota
	KindMedia
	KindButton
	KindContacts
	KindFlow
)

// Contact is one shared contact card.
type Contact struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// Event is one inbound message, already normalized by the webhook layer.
type Event struct {
	UserID   string
	Kind     EventKind
	Text     string
	MediaID  string
	ReplyID  string
	Contacts []Contact
}

// DirectiveType selects the outbound message shape.
type DirectiveType int

const (
	DirectiveText DirectiveType = iota
	DirectiveDocument
	DirectiveButtons
	DirectiveFlow
)

type Button struct {
	ID    string
	Title string
}

// Directive is one outbound message the transport must deliver.
type Directive struct {
	Type        DirectiveType
	Text        string
	DocumentURL string
	Filename    string
	Buttons     []Button
	FlowID      string
	FlowToken   string
}

func textMsg(text string) Directive {
	return Directive{Type: DirectiveText, Text: text}
}

func buttonsMsg(text string, buttons ...Button) Directive {
	return Directive{Type: DirectiveButtons, Text: text, Buttons: buttons}
}

// Button reply ids used across the flow.
const (
	btnConfirmYes   = "confirm_yes"
	btnConfirmNo    = "confirm_no"
	btnSplitYes     = "split_yes"
	btnSplitNo      = "split_no"
	btnTip3         = "tip_3"
	btnTip5         = "tip_5"
	btnTip7         = "tip_7"
	btnTipNone      = "tip_none"
	btnPayCard      = "pay_card"
	btnExcessTip    = "excess_tip"
	btnExcessRefund = "excess_refund"
	btnPayRemaining = "pay_remaining"
	btnAssistance   = "assistance"
)
