package dto

// PipelineStageStat describes one stage of the sales pipeline
type PipelineStageStat struct {
	Stage        string `json:"stage"`
	StageDisplay string `json:"stage_display"`
	Count        int64  `json:"count"`
	TotalValue   string `json:"total_value"`
}

// DashboardResponse aggregates the metrics shown on the dashboard. Monetary
// totals are fixed-point decimal strings.
type DashboardResponse struct {
	TotalLeads            int64               `json:"total_leads"`
	NewLeads              int64               `json:"new_leads"`
	QualifiedLeads        int64               `json:"qualified_leads"`
	ClosedWonLeads        int64               `json:"closed_won_leads"`
	ClosedWonRevenue      string              `json:"closed_won_revenue"`
	PipelineValue         string              `json:"pipeline_value"`
	Pipeline              []PipelineStageStat `json:"pipeline"`
	NeedsFollowUp         int64               `json:"needs_follow_up"`
	RecentLeads           []LeadResponse      `json:"recent_leads"`
	HighPriorityOpenLeads []LeadResponse      `json:"high_priority_open_leads"`
}
