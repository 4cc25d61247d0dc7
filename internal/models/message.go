package models

// MessageKind severity of an enforcement message
type MessageKind int

const (
	// MessageInfo is a remediation that was (or would be) applied.
	MessageInfo MessageKind = iota
	// MessageWarning is a condition the engine cannot remediate.
	MessageWarning
	// MessageFatal blocks the installation.
	MessageFatal
)

// Message is one result of an enforcement pass
type Message struct {
	Kind MessageKind `json:"kind"`
	Text string      `json:"text"`
}

// MessageCounts per kind
type MessageCounts struct {
	Info    int `json:"info"`
	Warning int `json:"warning"`
	Fatal   int `json:"fatal"`
}

// CountMessages tallies messages by kind
func CountMessages(msgs []Message) MessageCounts {
	var c MessageCounts
	for _, m := range msgs {
		switch m.Kind {
		case MessageInfo:
			c.Info++
		case MessageWarning:
			c.Warning++
		case MessageFatal:
			c.Fatal++
		}
	}
	return c
}
