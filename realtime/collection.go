package realtime

// Collection, id'ye göre tekil, en yenisi başta, en fazla limit elemanlı liste.
//
// Thread-safe değildir; Store'un mutex'i altında kullanılır.
type Collection[T any] struct {
	items []T
	idOf  func(T) string
	limit int
}

// NewCollection, boş bir koleksiyon oluşturur.
func NewCollection[T any](limit int, idOf func(T) string) *Collection[T] {
	return &Collection[T]{idOf: idOf, limit: limit}
}

// Len, eleman sayısı.
func (c *Collection[T]) Len() int {
	return len(c.items)
}

// Items, elemanların kopyası (sıra korunur).
func (c *Collection[T]) Items() []T {
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

// Index, id'nin konumu; yoksa -1.
func (c *Collection[T]) Index(id string) int {
	for i, item := range c.items {
		if c.idOf(item) == id {
			return i
		}
	}
	return -1
}

// Get, id'ye göre eleman.
func (c *Collection[T]) Get(id string) (T, bool) {
	if i := c.Index(id); i >= 0 {
		return c.items[i], true
	}
	var zero T
	return zero, false
}

// Prepend, id yoksa elemanı başa ekler ve limit'i aşan sondaki elemanları atar.
// id zaten varsa hiçbir şey yapmaz ve false döner.
func (c *Collection[T]) Prepend(item T) bool {
	if c.Index(c.idOf(item)) >= 0 {
		return false
	}
	c.items = append([]T{item}, c.items...)
	if c.limit > 0 && len(c.items) > c.limit {
		c.items = c.items[:c.limit]
	}
	return true
}

// Replace, aynı id'li elemanı yerinde değiştirir; eski değeri döner.
func (c *Collection[T]) Replace(item T) (T, bool) {
	i := c.Index(c.idOf(item))
	if i < 0 {
		var zero T
		return zero, false
	}
	old := c.items[i]
	c.items[i] = item
	return old, true
}

// Remove, id'li elemanı çıkarır; çıkarılan değeri döner.
func (c *Collection[T]) Remove(id string) (T, bool) {
	i := c.Index(id)
	if i < 0 {
		var zero T
		return zero, false
	}
	old := c.items[i]
	c.items = append(c.items[:i], c.items[i+1:]...)
	return old, true
}

// Reset, içeriği verilen listeyle değiştirir. Tekrar eden id'lerde ilki kalır,
// limit'i aşan kısım atılır.
func (c *Collection[T]) Reset(items []T) {
	seen := make(map[string]struct{}, len(items))
	out := make([]T, 0, len(items))
	for _, item := range items {
		id := c.idOf(item)
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, item)
		if c.limit > 0 && len(out) == c.limit {
			break
		}
	}
	c.items = out
}

// Clear, tüm elemanları siler.
func (c *Collection[T]) Clear() {
	c.items = nil
}
