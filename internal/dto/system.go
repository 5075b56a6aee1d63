package dto

type SystemLogDTO struct {
	LogID     string `json:"logId"`
	Type      string `json:"type"`
	Payload   string `json:"payload"`
	CreatedAt string `json:"createdAt"`
}

type ListSystemLogsResponse struct {
	Logs []SystemLogDTO `json:"logs"`
}

type ReportResponse struct {
	TotalConversations int `json:"totalConversations"`
	Open               int `json:"open"`
	Closed             int `json:"closed"`
	NeedsHuman         int `json:"needsHuman"`
	HandOffs           int `json:"handOffs"`
}
