// Package ws, change feed'in WebSocket sunucusudur.
//
// Mimari:
// - Hub: Tüm bağlantıları ve her bağlantının tablo subscription'larını yönetir
// - Client: Her WebSocket bağlantısını temsil eder
// - Event: Client-server arası iletilen mesaj formatı
//
// Event akışı:
// 1. Admin panel bağlanır → her tablo için "subscribe" gönderir
// 2. Bir yazma işlemi → HTTP → Service → DB kayıt
// 3. Service, Hub'ın PublishChange metodunu çağırır
// 4. Hub, tablo + filtresi eşleşen her subscription'a "change" event'i iletir
// 5. Client tarafında feed.SocketClient event'i realtime katmanına verir
package ws

import (
	json "github.com/goccy/go-json"
)

// Event, WebSocket üzerinden iletilen bir mesajı temsil eder.
//
// Op (operation): Event türü: "subscribe", "change", "heartbeat" vb.
// Ref: Subscription referansı. Client her subscribe için benzersiz bir ref seçer,
//
//	sunucu o subscription'a ait tüm cevapları ve change event'lerini aynı ref ile gönderir.
//
// Data: Event'e özgü payload.
// Seq (sequence number): Her outbound change event'ine verilen artan sayı.
type Event struct {
	Op   string `json:"op"`
	Ref  string `json:"ref,omitempty"`
	Data any    `json:"d,omitempty"`
	Seq  int64  `json:"seq,omitempty"`
}

// ────────────────────────────────────────────
// Operation sabitleri
// ────────────────────────────────────────────

// Client → Server operasyonları
const (
	OpHeartbeat   = "heartbeat"   // Client her 30sn'de gönderir: "hâlâ bağlıyım" sinyali
	OpSubscribe   = "subscribe"   // Tablo (ve opsiyonel filtre) için channel aç
	OpUnsubscribe = "unsubscribe" // Channel'ı kapat
)

// Server → Client operasyonları
const (
	OpHeartbeatAck   = "heartbeat_ack"   // Heartbeat'e yanıt: "seni duydum"
	OpSubscribeOK    = "subscribe_ok"    // Channel açıldı
	OpSubscribeError = "subscribe_error" // Channel açılamadı (bilinmeyen tablo, geçersiz filtre)
	OpChange         = "change"          // Tabloda satır değişti: Data: models.ChangeEvent
)

// SubscribeData, subscribe isteğinin payload'ı.
// Filter "kolon=op.değer" biçiminde (ör: admin_user_id=eq.42), boş olabilir.
type SubscribeData struct {
	Table  string `json:"table"`
	Filter string `json:"filter,omitempty"`
}

// SubscribeReply, subscribe_ok / subscribe_error payload'ı.
type SubscribeReply struct {
	Topic string `json:"topic,omitempty"`
	Error string `json:"error,omitempty"`
}

// DecodeData, Event.Data'yı hedef struct'a çevirir.
//
// Event.Data tipi `any`: JSON decode sonrası map[string]any olur,
// doğrudan cast edilemez. JSON'a çevirip tekrar parse etmek en güvenli yöntem.
func DecodeData(data any, v any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}
