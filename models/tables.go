package models

// Backing store tablo adları. Yazma servisleri, feed sunucusu ve realtime
// katmanı aynı isimleri kullanır.
const (
	TableNotifications      = "admin_notifications"
	TableMessages           = "messages"
	TableConversations      = "conversations"
	ViewConversationDetails = "conversation_details"
	TableOrders             = "orders"
	TableAppointments       = "appointments"
	TableAdminUsers         = "admin_users"
)
