package models

// Query, backing store'a gönderilen tablo sorgusu.
//
// Realtime katmanı SQL bilmez; sadece "şu tablodan, şu filtrelerle,
// şu sırayla, en fazla N satır" der. SQL'e çeviri repository.TableQuerier'ın işidir.
//
// CountOnly true ise satır dönmez, sadece filtreye uyan satır sayısı döner
// (Supabase'teki { count: 'exact', head: true } karşılığı).
type Query struct {
	Table     string
	Filters   []Filter
	OrderBy   string
	Desc      bool
	Limit     int
	CountOnly bool
}
