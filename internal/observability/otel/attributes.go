package otel

// Span attribute keys
const (
	AttrOpID       = "hardenplan.op_id"
	AttrCommand    = "hardenplan.command"
	AttrReportOnly = "hardenplan.report_only"
	AttrRules      = "hardenplan.rules"
	AttrInfo       = "hardenplan.messages.info"
	AttrWarning    = "hardenplan.messages.warning"
	AttrFatal      = "hardenplan.messages.fatal"
	AttrChanges    = "hardenplan.plan.changes"
)
