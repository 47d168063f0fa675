package models

import "time"

// ConnectionState, realtime bağlantısının genel durumu.
//
//	idle → connecting → connected
//	connected → degraded → reconnecting → connected | degraded
type ConnectionState string

const (
	ConnIdle         ConnectionState = "idle"
	ConnConnecting   ConnectionState = "connecting"
	ConnConnected    ConnectionState = "connected"
	ConnDegraded     ConnectionState = "degraded"
	ConnReconnecting ConnectionState = "reconnecting"
)

// ChannelState, tek bir subscription channel'ının durumu.
type ChannelState string

const (
	ChannelConnecting ChannelState = "connecting"
	ChannelOpen       ChannelState = "open"
	ChannelError      ChannelState = "error"
	ChannelClosed     ChannelState = "closed"
)

// Subscription, change feed'e açılacak bir channel'ın tanımı.
//
// Filter nil ise tablonun tüm değişiklikleri gelir.
// OnStatus, channel açıldıktan sonraki durum değişikliklerini (ör: socket koptu)
// bildirmek için feed tarafından çağrılır; nil olabilir.
type Subscription struct {
	Name     string
	Table    string
	Filter   *Filter
	OnStatus func(state ChannelState, err error)
}

// Counters, dashboard badge'lerinin kaynağı olan sayaçlar. Hiçbiri negatif olamaz.
type Counters struct {
	UnreadNotifications  int `json:"unread_notifications"`
	UnreadMessages       int `json:"unread_messages"`
	PendingOrders        int `json:"pending_orders"`
	UpcomingAppointments int `json:"upcoming_appointments"`
}

// NotificationBadge, üst bardaki zil ikonunun sayısı: okunmamış bildirim + mesaj.
func (c Counters) NotificationBadge() int {
	return c.UnreadNotifications + c.UnreadMessages
}

// Total, tüm sayaçların toplamı.
func (c Counters) Total() int {
	return c.UnreadNotifications + c.UnreadMessages + c.PendingOrders + c.UpcomingAppointments
}

// ConnectionStatus, consumer'lara gösterilen bağlantı özeti.
type ConnectionStatus struct {
	State       ConnectionState `json:"state"`
	IsConnected bool            `json:"is_connected"`
	LastError   string          `json:"last_error,omitempty"`
	RetryCount  int             `json:"retry_count"`
}

// ChannelInfo, açık subscription handle'ının dışarıya gösterilen özeti.
type ChannelInfo struct {
	ID     uint64       `json:"id"`
	Name   string       `json:"name"`
	Table  string       `json:"table"`
	Filter string       `json:"filter,omitempty"`
	State  ChannelState `json:"state"`
}

// Snapshot, shared state store'un belirli bir andaki tam kopyası.
type Snapshot struct {
	Identity          string                  `json:"identity"`
	Notifications     []Row                   `json:"notifications"`
	Conversations     []Row                   `json:"conversations"`
	Orders            []Row                   `json:"orders"`
	Appointments      []Row                   `json:"appointments"`
	Counters          Counters                `json:"counters"`
	NotificationBadge int                     `json:"notification_badge"`
	TotalUnread       int                     `json:"total_unread"`
	Loading           map[Entity]bool         `json:"loading"`
	Markers           map[Entity]UpdateMarker `json:"markers"`
	Connection        ConnectionStatus        `json:"connection"`
	TakenAt           time.Time               `json:"taken_at"`
}

// StoreTopic, store'da neyin değiştiğini söyler.
type StoreTopic string

const (
	TopicCollection StoreTopic = "collection"
	TopicCounters   StoreTopic = "counters"
	TopicMarker     StoreTopic = "marker"
	TopicLoading    StoreTopic = "loading"
	TopicConnection StoreTopic = "connection"
	TopicReset      StoreTopic = "reset"
)

// StoreChange, Watch ile dinleyen consumer'lara gönderilen bildirim.
// İçerik taşımaz: consumer ilgili projection'ı store'dan tekrar okur.
type StoreChange struct {
	Seq    uint64     `json:"seq"`
	Topic  StoreTopic `json:"topic"`
	Entity Entity     `json:"entity,omitempty"`
}
