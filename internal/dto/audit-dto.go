package dto

type AuditFilterDTO struct {
	Section  string `query:"section" validate:"omitempty,oneof=equipment assignment"`
	Action   string `query:"action" validate:"omitempty,oneof=CREATE MODIFY DELETE ASSIGN RETURN"`
	ActorID  uint64 `query:"actor_id"`
	TargetID uint64 `query:"target_id"`
	From     string `query:"from" validate:"omitempty,datetime=2006-01-02"`
	To       string `query:"to" validate:"omitempty,datetime=2006-01-02"`
	Page     int    `query:"page" validate:"omitempty,gte=1"`
	Limit    int    `query:"limit" validate:"omitempty,gte=1,lte=500"`
}

type AuditEventDTO struct {
	ID        uint64                 `json:"id"`
	TxID      string                 `json:"tx_id"`
	Action    string                 `json:"action"`
	Section   string                 `json:"section"`
	TargetID  *uint64                `json:"target_id"`
	ActorID   uint64                 `json:"actor_id"`
	Details   map[string]interface{} `json:"details"`
	CreatedAt string                 `json:"created_at"`
}
