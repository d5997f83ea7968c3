package types

// AuditRecord is the JSON document written to the audit log stream.
type AuditRecord struct {
	AccountID string         `json:"account_id"`
	Region    string         `json:"region"`
	RequestID string         `json:"request_id"`
	Result    *RenewalResult `json:"result"`
}
