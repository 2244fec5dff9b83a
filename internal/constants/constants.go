package constants

// 佣金状态常量
const (
	CommissionStatusPending   = "pending"
	CommissionStatusAvailable = "available"
	CommissionStatusPaid      = "paid"
	CommissionStatusRejected  = "rejected"
)

// 佣金类型常量
const (
	CommissionTypeFirstSale = "primeira_venda"
	CommissionTypeRenewal   = "renovacao"
	CommissionTypeOneTime   = "venda_unica"
)

// 账单原因常量（来自支付平台）
const (
	BillingReasonSubscriptionCreate = "subscription_create"
	BillingReasonSubscriptionCycle  = "subscription_cycle"
	BillingReasonOneTimePurchase    = "one_time_purchase"
)

// 推广者套餐类型常量
const (
	AffiliatePlanFree = "FREE"
	AffiliatePlanPro  = "PRO"
)

// 订阅状态常量
const (
	SubscriptionStatusActive   = "active"
	SubscriptionStatusTrialing = "trialing"
	SubscriptionStatusCanceled = "canceled"
	SubscriptionStatusPastDue  = "past_due"
)

// 统一支付状态常量
const (
	UnifiedPaymentStatusPaid     = "paid"
	UnifiedPaymentStatusFailed   = "failed"
	UnifiedPaymentStatusRefunded = "refunded"
)

// 推广者状态常量
const (
	AffiliateStatusActive   = "active"
	AffiliateStatusDisabled = "disabled"
)

// 同步动作常量
const (
	SyncActionUser    = "sync_user"
	SyncActionPayment = "sync_payment"
	SyncActionBoth    = "sync_both"
)

// 补偿任务单条结果状态
const (
	ReprocessStatusAlreadyProcessed = "already_processed"
	ReprocessStatusCommissionsFound = "commissions_found"
	ReprocessStatusReprocessed      = "reprocessed"
	ReprocessStatusError            = "error"
)

// 佣金转可提现结果状态
const (
	MaturationStatusProcessed            = "processed"
	MaturationStatusWaitingWithdrawalDay = "waiting_withdrawal_day"
	MaturationStatusBelowMinimum         = "below_minimum"
	MaturationStatusError                = "error"
)

// 异步任务类型常量
const (
	TaskCommissionProcessPayment = "commission:process_payment"
	TaskCommissionMaturation     = "commission:maturation"
	TaskCommissionReconcile      = "commission:reconcile"
)

// 队列名称常量
const (
	QueueDefault  = "default"
	QueueCritical = "critical"
)

// 缓存默认配置常量
const (
	RedisPrefixDefault = "rr"
)

// 任务锁键常量
const (
	JobLockMaturation = "job:commission_maturation"
	JobLockReconcile  = "job:commission_reconcile"
)

// app_settings 键常量
const (
	SettingKeyCommissionDaysToAvailable = "commission_days_to_available"
	SettingKeyCommissionMinWithdrawal   = "commission_min_withdrawal"
)

// 佣金默认配置
const (
	CommissionDefaultHoldingPeriodDays  = 7
	CommissionDefaultMinWithdrawal      = 50.00
	CommissionDefaultMaxDepth           = 3
	CommissionDefaultReconcileBatchSize = 100
	CommissionDefaultWithdrawalDay      = 1
)

// 币种常量
const (
	CurrencyDefault = "BRL"
)
