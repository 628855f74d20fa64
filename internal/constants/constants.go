package constants

// 购物车状态常量
const (
	CartStateAnonymous     = "anonymous"
	CartStateAuthenticated = "authenticated"
)

// 购物车后端类型常量
const (
	CartBackendLocal  = "local"
	CartBackendRemote = "remote"
)

// 本地存储常量
const (
	// LocalCartKey 匿名购物车在本地存储中的固定 key（按会话加前缀）
	LocalCartKey = "cart"

	LocalStoreBackendDatabase = "database"
	LocalStoreBackendRedis    = "redis"
)

// 通知级别常量
const (
	NoticeLevelSuccess = "success"
	NoticeLevelInfo    = "info"
	NoticeLevelWarning = "warning"
	NoticeLevelError   = "error"
)

// 支付方式常量（仅用于展示分期选项）
const (
	PaymentMethodPix        = "pix"
	PaymentMethodBoleto     = "boleto"
	PaymentMethodCreditCard = "credit_card"
)

// 队列常量
const (
	QueueDefault = "default"
	QueueLow     = "low"
)

// 异步任务类型常量
const (
	TaskCartNotice      = "cart:notice"
	TaskCartMergeReport = "cart:merge_report"
)

// 会话常量
const (
	SessionHeader = "X-Session-ID"
	SessionCookie = "sf_session"
)
