package models

// String to lowercase
func (k MessageKind) String() string {
	switch k {
	case MessageInfo:
		return "info"
	case MessageWarning:
		return "warning"
	case MessageFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// MarshalText keeps kinds readable in JSON output
func (k MessageKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}
