package realtime

import (
	"github.com/akinalp/adminpulse/models"
)

// Tablo adları models'ten gelir; realtime içinde kısa isimle kullanılır.
const (
	TableNotifications      = models.TableNotifications
	TableMessages           = models.TableMessages
	TableConversations      = models.TableConversations
	ViewConversationDetails = models.ViewConversationDetails
	TableOrders             = models.TableOrders
	TableAppointments       = models.TableAppointments
	TableAdminUsers         = models.TableAdminUsers
)

// channelSpec, açılacak bir subscription channel'ı.
type channelSpec struct {
	name   string
	table  string
	entity models.Entity
	// scoped: true ise channel admin_user_id=eq.<identity> filtresiyle açılır.
	scoped bool
}

// channelSpecs, setup sırasında channel'ların açılış sırası.
// Sıra sabittir: notifications, messages, conversations, orders, appointments.
var channelSpecs = []channelSpec{
	{name: "notifications", table: TableNotifications, entity: models.EntityNotification, scoped: true},
	{name: "messages", table: TableMessages, entity: models.EntityMessage},
	{name: "conversations", table: TableConversations, entity: models.EntityConversation},
	{name: "orders", table: TableOrders, entity: models.EntityOrder},
	{name: "appointments", table: TableAppointments, entity: models.EntityAppointment},
}

// filter, channel'ın identity'ye göre filtresini üretir. Scoped değilse nil.
func (c channelSpec) filter(identity string) *models.Filter {
	if !c.scoped {
		return nil
	}
	f := models.Eq("admin_user_id", identity)
	return &f
}

// entityForTable, change event'in tablosundan entity türünü bulur.
func entityForTable(table string) (models.Entity, bool) {
	for _, spec := range channelSpecs {
		if spec.table == table {
			return spec.entity, true
		}
	}
	return "", false
}

// collectionSpec, bir working set'in nereden ve hangi sırayla yükleneceği.
type collectionSpec struct {
	source  string
	orderBy string
	scoped  bool
}

// collectionSpecs: working set tutulan entity'ler. message'ın koleksiyonu yok:
// mesajlar sadece okunmamış sayacını ve konuşma önizlemelerini etkiler.
var collectionSpecs = map[models.Entity]collectionSpec{
	models.EntityNotification: {source: TableNotifications, orderBy: "created_at", scoped: true},
	models.EntityConversation: {source: ViewConversationDetails, orderBy: "last_message_at"},
	models.EntityOrder:        {source: TableOrders, orderBy: "created_at"},
	models.EntityAppointment:  {source: TableAppointments, orderBy: "appointment_date"},
}

// collectionQuery, entity'nin working set sorgusu.
func collectionQuery(entity models.Entity, identity string, limit int) (models.Query, bool) {
	spec, ok := collectionSpecs[entity]
	if !ok {
		return models.Query{}, false
	}
	q := models.Query{Table: spec.source, OrderBy: spec.orderBy, Desc: true, Limit: limit}
	if spec.scoped {
		q.Filters = []models.Filter{models.Eq("admin_user_id", identity)}
	}
	return q, true
}

// counterRule, bir sayacın hangi tablodan, hangi filtrelerle sayıldığı.
// Aynı filtreler hem authoritative COUNT sorgusunda hem de event'lerde
// satırın sayaca katkı verip vermediğini bulmakta (models.MatchAll) kullanılır.
type counterRule struct {
	table   string
	filters func(identity, today string) []models.Filter
}

var counterRules = map[models.Entity]counterRule{
	models.EntityNotification: {
		table: TableNotifications,
		filters: func(identity, _ string) []models.Filter {
			return []models.Filter{
				models.Eq("admin_user_id", identity),
				models.Eq("is_read", "false"),
			}
		},
	},
	models.EntityMessage: {
		table: TableMessages,
		filters: func(_, _ string) []models.Filter {
			return []models.Filter{
				models.Eq("sender_type", string(models.SenderUser)),
				models.Eq("is_read", "false"),
			}
		},
	},
	models.EntityOrder: {
		table: TableOrders,
		filters: func(_, _ string) []models.Filter {
			return []models.Filter{{
				Column: "status",
				Op:     models.FilterIn,
				Value:  "(" + models.OrderPending + "," + models.OrderPreparing + ")",
			}}
		},
	},
	models.EntityAppointment: {
		table: TableAppointments,
		filters: func(_, today string) []models.Filter {
			return []models.Filter{
				models.Eq("status", models.AppointmentPending),
				{Column: "appointment_date", Op: models.FilterGte, Value: today},
			}
		},
	},
}

// counterQuery, entity'nin sayaç sorgusu.
func counterQuery(entity models.Entity, identity, today string) (models.Query, bool) {
	rule, ok := counterRules[entity]
	if !ok {
		return models.Query{}, false
	}
	return models.Query{Table: rule.table, Filters: rule.filters(identity, today), CountOnly: true}, true
}

// counterField, Counters içindeki ilgili alanın pointer'ı. Sayaç yoksa nil.
func counterField(c *models.Counters, entity models.Entity) *int {
	switch entity {
	case models.EntityNotification:
		return &c.UnreadNotifications
	case models.EntityMessage:
		return &c.UnreadMessages
	case models.EntityOrder:
		return &c.PendingOrders
	case models.EntityAppointment:
		return &c.UpcomingAppointments
	}
	return nil
}
