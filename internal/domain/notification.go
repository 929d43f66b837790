package domain

// NotificationType classifies how close an item is to its expiry date.
type NotificationType string

const (
	TypeExpired NotificationType = "expired"
	TypeToday   NotificationType = "today"
	TypeUrgent  NotificationType = "urgent"
	TypeWarning NotificationType = "warning"
)

// Urgency is the dispatch priority of a record. Only high-urgency records
// are ever pushed as platform notifications.
type Urgency string

const (
	UrgencyHigh   Urgency = "high"
	UrgencyMedium Urgency = "medium"
)

// NotificationRecord is one classified alert, derived fresh on every
// classification pass and never persisted.
type NotificationRecord struct {
	Type     NotificationType `json:"type"`
	ItemID   string           `json:"item_id"`
	ItemName string           `json:"item_name"`
	DaysLeft int              `json:"days_left"`
	Urgency  Urgency          `json:"urgency"`
	Title    string           `json:"title"`
	Body     string           `json:"body"`
}

// NotificationAction is one tappable action on a delivered notification.
type NotificationAction struct {
	Action string `json:"action"`
	Title  string `json:"title"`
}

// NotificationData rides along with a delivered notification; the URL is
// opened when the notification is clicked without an explicit action.
type NotificationData struct {
	URL   string `json:"url"`
	Count int    `json:"count,omitempty"`
}

// Notification is the platform notification payload — the dispatcher's sole
// wire contract with the notification surface.
type Notification struct {
	Title              string               `json:"title"`
	Body               string               `json:"body"`
	Icon               string               `json:"icon"`
	Badge              string               `json:"badge"`
	Vibrate            []int                `json:"vibrate"`
	Tag                string               `json:"tag"`
	RequireInteraction bool                 `json:"requireInteraction"`
	Data               NotificationData     `json:"data"`
	Actions            []NotificationAction `json:"actions"`
}

// NewAlert builds a Notification with the product's standard payload
// defaults around the given title and body.
func NewAlert(title, body string, count int) *Notification {
	return &Notification{
		Title:              title,
		Body:               body,
		Icon:               "/icon-192.png",
		Badge:              "/icon-192.png",
		Vibrate:            []int{200, 100, 200},
		Tag:                "expiring-products",
		RequireInteraction: true,
		Data:               NotificationData{URL: "/", Count: count},
		Actions: []NotificationAction{
			{Action: "view", Title: "View Products"},
			{Action: "dismiss", Title: "Dismiss"},
		},
	}
}
