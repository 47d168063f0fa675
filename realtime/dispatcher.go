package realtime

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/juju/clock"

	"github.com/akinalp/adminpulse/models"
	"github.com/akinalp/adminpulse/pkg/cache"
)

// Dispatcher, store'un tek yazarı.
//
// İki yoldan yazar:
//  1. Handle: feed'den gelen change event'i incremental olarak uygular
//  2. Reload / LoadAll: backing store'dan authoritative veri çekip üzerine yazar
//
// Her yazma başladığı session generation'ı ile yapılır; session kapandıysa
// (Cleanup) sonuç store'a hiç ulaşmaz.
type Dispatcher struct {
	store    *Store
	querier  Querier
	clock    clock.Clock
	pageSize int
	dedupe   *cache.TTLCache[string, struct{}]
	alert    func(models.Row)
}

// outcome, mutasyon sonrası lock dışında yapılacak işler.
type outcome struct {
	reload              bool
	reloadCounter       bool
	reloadConversations bool
	alert               models.Row
}

func newDispatcher(store *Store, querier Querier, clk clock.Clock, cfg Config, alert func(models.Row)) *Dispatcher {
	return &Dispatcher{
		store:    store,
		querier:  querier,
		clock:    clk,
		pageSize: cfg.PageSize,
		dedupe:   cache.New[string, struct{}](cfg.DedupeTTL, time.Minute, cache.WithClock(clk)),
		alert:    alert,
	}
}

// Handle, tek bir change event'i uygular.
//
// Kurallar:
//   - INSERT: id yoksa başa eklenir (limit aşılırsa sondan düşer), varsa no-op.
//   - UPDATE: yerinde değiştirilir; sayaç katkısı değiştiyse ±1.
//     id working set'te yoksa satıra dokunulmaz, koleksiyon bir kez yeniden yüklenir.
//   - DELETE: varsa çıkarılır, çıkan satır sayaca katkı veriyorduysa −1.
//     Working set dışındaki id'ler yok sayılır.
//   - Aynı table|id|op|commit_timestamp ikinci kez gelirse atlanır.
func (d *Dispatcher) Handle(ctx context.Context, gen uint64, ev models.ChangeEvent) {
	entity, ok := entityForTable(ev.Table)
	if !ok {
		log.Printf("[realtime] event for untracked table %q ignored", ev.Table)
		return
	}
	if ev.EntityID() == "" {
		log.Printf("[realtime] %s %s event without id ignored", ev.Table, ev.Type)
		return
	}
	if !ev.CommitTimestamp.IsZero() && !d.dedupe.SetIfAbsent(ev.DedupeKey(), struct{}{}) {
		return
	}

	var out outcome
	applied := d.store.apply(gen, func(tx *storeTx) {
		out = d.mutate(tx, entity, ev)
	})
	if !applied {
		return
	}

	if out.reload {
		if err := d.Reload(ctx, gen, entity); err != nil {
			log.Printf("[realtime] reload after unknown %s update failed: %v", entity, err)
		}
	}
	if out.reloadCounter {
		if err := d.reloadCounter(ctx, gen, entity); err != nil {
			log.Printf("[realtime] %s counter reload failed: %v", entity, err)
		}
	}
	if out.reloadConversations {
		if err := d.Reload(ctx, gen, models.EntityConversation); err != nil {
			log.Printf("[realtime] conversation reload failed: %v", err)
		}
	}
	if out.alert != nil && d.alert != nil {
		d.alert(out.alert)
	}
}

// mutate, store lock'u altında event'i uygular.
func (d *Dispatcher) mutate(tx *storeTx, entity models.Entity, ev models.ChangeEvent) outcome {
	var out outcome
	today := d.today()
	contributes := func(row models.Row) bool {
		return contributesTo(entity, row, tx.identity(), today)
	}

	ts := ev.CommitTimestamp
	if ts.IsZero() {
		ts = d.clock.Now()
	}
	marker := models.UpdateMarker{
		Entity:    entity,
		Kind:      ev.Type,
		New:       ev.New.Clone(),
		Old:       ev.Old.Clone(),
		Timestamp: ts,
	}

	col := tx.collection(entity)
	if col == nil {
		// Working set'i olmayan tablo (messages): sayaç payload'lardan ayarlanır.
		switch ev.Type {
		case models.OpInsert:
			if contributes(ev.New) {
				tx.adjust(entity, 1)
			}
			out.reloadConversations = ev.New.String("sender_type") == string(models.SenderUser)
		case models.OpUpdate:
			if !ev.Old.Has("is_read") {
				// Önceki durum bilinmiyor: katkı farkı hesaplanamaz.
				out.reloadCounter = true
			} else {
				tx.adjust(entity, delta(contributes(ev.Old), contributes(ev.New)))
				out.reloadConversations = ev.Old.Bool("is_read") != ev.New.Bool("is_read")
			}
		case models.OpDelete:
			if contributes(ev.Old) {
				tx.adjust(entity, -1)
			}
		}
		tx.setMarker(marker)
		return out
	}

	id := ev.EntityID()
	switch ev.Type {
	case models.OpInsert:
		row := ev.New.Clone()
		if !col.Prepend(row) {
			return out
		}
		tx.collectionChanged(entity)
		if contributes(row) {
			tx.adjust(entity, 1)
		}
		if entity == models.EntityNotification && isAlertPriority(row) {
			out.alert = row.Clone()
		}

	case models.OpUpdate:
		local, ok := col.Get(id)
		if !ok {
			out.reload = true
			tx.setMarker(marker)
			return out
		}
		merged := local.Merge(ev.New)
		col.Replace(merged)
		tx.collectionChanged(entity)
		tx.adjust(entity, delta(contributes(local), contributes(merged)))

	case models.OpDelete:
		removed, ok := col.Remove(id)
		if !ok {
			return out
		}
		tx.collectionChanged(entity)
		if contributes(removed) {
			tx.adjust(entity, -1)
		}

	default:
		return out
	}

	tx.setMarker(marker)
	return out
}

// LoadAll, tüm koleksiyonları ve sayaçları authoritative olarak yükler.
// Bir entity'nin hatası diğerlerini durdurmaz; hatalar birleştirilip döner.
func (d *Dispatcher) LoadAll(ctx context.Context, gen uint64) error {
	var errs []error
	for _, entity := range models.Entities {
		if err := d.Reload(ctx, gen, entity); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Reload, tek bir entity'nin working set'ini ve sayacını yeniden yükler.
func (d *Dispatcher) Reload(ctx context.Context, gen uint64, entity models.Entity) error {
	identity := d.store.Identity()
	today := d.today()

	d.store.apply(gen, func(tx *storeTx) { tx.setLoading(entity, true) })

	var (
		rows            []models.Row
		count           int
		rowsErr, cntErr error
		hasRows, hasCnt bool
	)
	if q, ok := collectionQuery(entity, identity, d.pageSize); ok {
		hasRows = true
		rows, _, rowsErr = d.querier.Query(ctx, q)
	}
	if q, ok := counterQuery(entity, identity, today); ok {
		hasCnt = true
		_, count, cntErr = d.querier.Query(ctx, q)
	}

	d.store.apply(gen, func(tx *storeTx) {
		if hasRows && rowsErr == nil {
			tx.collection(entity).Reset(rows)
			tx.collectionChanged(entity)
		}
		if hasCnt && cntErr == nil {
			tx.setCounter(entity, count)
		}
		tx.setLoading(entity, false)
		if rowsErr != nil || cntErr != nil {
			tx.setLastError(fmt.Sprintf("failed to load %s data", entity))
		}
	})

	if rowsErr != nil {
		return fmt.Errorf("load %s: %w", entity, rowsErr)
	}
	if cntErr != nil {
		return fmt.Errorf("count %s: %w", entity, cntErr)
	}
	return nil
}

// reloadCounter, sadece sayacı yeniden sayar.
func (d *Dispatcher) reloadCounter(ctx context.Context, gen uint64, entity models.Entity) error {
	q, ok := counterQuery(entity, d.store.Identity(), d.today())
	if !ok {
		return nil
	}
	_, count, err := d.querier.Query(ctx, q)
	if err != nil {
		return fmt.Errorf("count %s: %w", entity, err)
	}
	d.store.apply(gen, func(tx *storeTx) { tx.setCounter(entity, count) })
	return nil
}

// resetDedupe, yeni session başlarken eski event anahtarlarını unutur.
func (d *Dispatcher) resetDedupe() {
	d.dedupe.Clear()
}

func (d *Dispatcher) close() {
	d.dedupe.Close()
}

func (d *Dispatcher) today() string {
	return d.clock.Now().UTC().Format(models.DateLayout)
}

// contributesTo, satırın entity sayacına katkı verip vermediğini döner.
func contributesTo(entity models.Entity, row models.Row, identity, today string) bool {
	rule, ok := counterRules[entity]
	if !ok || row == nil {
		return false
	}
	return models.MatchAll(row, rule.filters(identity, today))
}

func delta(before, after bool) int {
	switch {
	case before && !after:
		return -1
	case !before && after:
		return 1
	}
	return 0
}

func isAlertPriority(row models.Row) bool {
	switch models.NotificationPriority(row.String("priority")) {
	case models.PriorityHigh, models.PriorityMedium:
		return true
	}
	return false
}
