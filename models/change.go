package models

import (
	"strings"
	"time"
)

// Operation, bir change event'in türü: Postgres logical replication ile aynı isimler.
type Operation string

const (
	OpInsert Operation = "INSERT"
	OpUpdate Operation = "UPDATE"
	OpDelete Operation = "DELETE"
)

// ParseOperation, büyük/küçük harf duyarsız operasyon adını çözer.
func ParseOperation(s string) (Operation, bool) {
	switch Operation(strings.ToUpper(strings.TrimSpace(s))) {
	case OpInsert:
		return OpInsert, true
	case OpUpdate:
		return OpUpdate, true
	case OpDelete:
		return OpDelete, true
	}
	return "", false
}

// ChangeEvent, change feed'den gelen tek bir satır değişikliği.
//
// New: INSERT/UPDATE sonrası satır. DELETE'te boş.
// Old: UPDATE öncesi / DELETE edilen satır. Feed replica identity'sine göre
// sadece primary key içerebilir veya hiç gelmeyebilir.
type ChangeEvent struct {
	Table           string    `json:"table"`
	Type            Operation `json:"type"`
	New             Row       `json:"new,omitempty"`
	Old             Row       `json:"old,omitempty"`
	CommitTimestamp time.Time `json:"commit_timestamp"`
}

// EntityID, event'in ait olduğu satırın id'si. DELETE'te Old'dan okunur.
func (e ChangeEvent) EntityID() string {
	if id := e.New.ID(); id != "" {
		return id
	}
	return e.Old.ID()
}

// Payload, filtre eşleştirmede kullanılan satır:
// INSERT/UPDATE için New, DELETE için Old.
func (e ChangeEvent) Payload() Row {
	if e.Type == OpDelete {
		return e.Old
	}
	return e.New
}

// DedupeKey, aynı event'in tekrar teslimini tanımak için kullanılan anahtar.
// table|id|op|commit_timestamp: feed reconnect sonrası aynı değişikliği
// ikinci kez gönderirse bu anahtar eşleşir.
func (e ChangeEvent) DedupeKey() string {
	return e.Table + "|" + e.EntityID() + "|" + string(e.Type) + "|" +
		e.CommitTimestamp.UTC().Format(time.RFC3339Nano)
}

// Entity, dashboard'un takip ettiği varlık türleri.
// Update marker'lar ve loading flag'leri entity bazında tutulur.
type Entity string

const (
	EntityNotification Entity = "notification"
	EntityConversation Entity = "conversation"
	EntityMessage      Entity = "message"
	EntityOrder        Entity = "order"
	EntityAppointment  Entity = "appointment"
)

// Entities, tüm entity'ler sabit sırada.
var Entities = []Entity{
	EntityNotification,
	EntityConversation,
	EntityMessage,
	EntityOrder,
	EntityAppointment,
}

// UpdateMarker, bir entity türü için en son uygulanan değişiklik.
// Geçmiş tutulmaz: her yeni event öncekini ezer.
// Consumer'lar (ör: açık sipariş detay ekranı) "bir şey değişti mi?"
// sorusunu bununla cevaplar.
type UpdateMarker struct {
	Entity    Entity    `json:"entity"`
	Kind      Operation `json:"kind"`
	New       Row       `json:"new,omitempty"`
	Old       Row       `json:"old,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
