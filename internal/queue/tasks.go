package queue

import (
	"encoding/json"

	"github.com/agendasuperapi/renda-recorrente2-sub004/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskProcessPayment 单笔支付佣金重试
	TaskProcessPayment = constants.TaskCommissionProcessPayment
	// TaskMaturation pending -> available 结算
	TaskMaturation = constants.TaskCommissionMaturation
	// TaskReconcile 缺失佣金补偿
	TaskReconcile = constants.TaskCommissionReconcile
)

// ProcessPaymentPayload 单笔支付重试载荷
type ProcessPaymentPayload struct {
	PaymentID string `json:"payment_id"`
}

// JobTriggerPayload 定时/手动任务载荷
type JobTriggerPayload struct {
	Trigger string `json:"trigger"` // schedule / manual
}

// ReconcilePayload 补偿任务载荷
type ReconcilePayload struct {
	Trigger           string   `json:"trigger"`
	PaymentIDs        []string `json:"payment_ids,omitempty"`
	ProcessAllPending bool     `json:"process_all_pending"`
}

// NewProcessPaymentTask 创建单笔支付重试任务
func NewProcessPaymentTask(payload ProcessPaymentPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskProcessPayment, body), nil
}

// NewMaturationTask 创建结算任务
func NewMaturationTask(payload JobTriggerPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskMaturation, body), nil
}

// NewReconcileTask 创建补偿任务
func NewReconcileTask(payload ReconcilePayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReconcile, body), nil
}
