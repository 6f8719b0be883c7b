package shared

// Task types
const (
	TypeOrderStatusChanged         = "order:status_changed"
	TypePromotionDeactivateExpired = "promotion:deactivate_expired"
)

// Queue names and their asynq priorities
const (
	QueueOrder     = "order"
	QueuePromotion = "promotion"
	QueueDefault   = "default"
)

// QueuePriorities is the weight table passed to the asynq server
var QueuePriorities = map[string]int{
	QueueOrder:     6,
	QueuePromotion: 3,
	QueueDefault:   1,
}
