package domain

// 告警类型
const (
	AlertTypeBulkUpdateFailed = "bulk_update_failed"
	AlertTypeUnrestoredState  = "unrestored_state"
)

// AlertMessage 是投递到告警队列的消息，由 notify worker 消费后发送邮件
type AlertMessage struct {
	Type      string `json:"type"`
	RequestID string `json:"requestId"`
	Data      any    `json:"data"`
}

// BulkFailureAlertData 描述一次批量更新在所有层级耗尽后的失败情况。
// Unrestored 中的编组 rolledBack=false，意味着上游处于未知的部分状态，需要人工介入。
type BulkFailureAlertData struct {
	Summary      string   `json:"summary"`
	Path         string   `json:"path"`
	FailedGroups []string `json:"failedGroups"`
	Unrestored   []string `json:"unrestored,omitempty"`
}
