package alert

// Event bus topics published by the alert manager.
const (
	TopicAlertTriggered = "alert.triggered"
	TopicAlertsCleared  = "alert.cleared"
)
