package models

// EnforcementReport summarises one enforcement pass for gates and receipts
type EnforcementReport struct {
	Messages   []Message     `json:"messages"`
	Counts     MessageCounts `json:"counts"`
	ReportOnly bool          `json:"report_only"`
	Changes    int           `json:"changes"`
}

// NewEnforcementReport from pass output
func NewEnforcementReport(msgs []Message, reportOnly bool, changes int) *EnforcementReport {
	if msgs == nil {
		msgs = []Message{}
	}
	return &EnforcementReport{
		Messages:   msgs,
		Counts:     CountMessages(msgs),
		ReportOnly: reportOnly,
		Changes:    changes,
	}
}
