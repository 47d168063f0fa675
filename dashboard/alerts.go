package dashboard

import (
	"context"
	"log"
	"time"

	"github.com/akinalp/adminpulse/models"
	"github.com/akinalp/adminpulse/pkg/email"
)

// alertTimeout, tek bir uyarı e-postasının gönderim süresi sınırı.
const alertTimeout = 15 * time.Second

// NewAlertFunc, realtime.WithAlertFunc'a verilecek fonksiyonu döner.
//
// high öncelikli bildirimler e-posta olarak gönderilir (sender nil değilse),
// medium olanlar sadece loglanır. Fonksiyon feed goroutine'inden çağrılır;
// gönderim kendi goroutine'inde yapılır.
func NewAlertFunc(sender email.AlertSender) func(models.Row) {
	return func(row models.Row) {
		priority := models.NotificationPriority(row.String("priority"))
		title := row.String("title")

		if priority != models.PriorityHigh || sender == nil {
			log.Printf("[dashboard] %s priority notification: %s", priority, title)
			return
		}

		alert := email.Alert{
			Title:     title,
			Message:   row.String("message"),
			Priority:  string(priority),
			Category:  row.String("category"),
			ActionURL: row.String("action_url"),
		}
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), alertTimeout)
			defer cancel()
			if err := sender.SendAlert(ctx, alert); err != nil {
				log.Printf("[dashboard] failed to send alert email for %s: %v", row.ID(), err)
			}
		}()
	}
}
