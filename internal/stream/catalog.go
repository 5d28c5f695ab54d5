package stream

import "strconv"

// Catalog фиксированный список шаблонов сегментов для случайного выбора
type Catalog struct {
	templates []SegmentTemplate
}

// NewCatalog создаёт каталог из идентификаторов шаблонов
func NewCatalog(ids ...string) *Catalog {
	templates := make([]SegmentTemplate, 0, len(ids))
	for _, id := range ids {
		templates = append(templates, SegmentTemplate{ID: id})
	}
	return &Catalog{templates: templates}
}

// Len количество шаблонов
func (c *Catalog) Len() int {
	return len(c.templates)
}

// Templates возвращает копию списка шаблонов
func (c *Catalog) Templates() []SegmentTemplate {
	out := make([]SegmentTemplate, len(c.templates))
	copy(out, c.templates)
	return out
}

// Pick выбирает шаблон равновероятно; выборы независимы между вызовами
func (c *Catalog) Pick(rng RandSource) (SegmentTemplate, error) {
	if len(c.templates) == 0 {
		return SegmentTemplate{}, &ConfigurationError{Field: "segment_catalog", Reason: "catalog is empty"}
	}
	return c.templates[rng.Intn(len(c.templates))], nil
}

func (c *Catalog) validate() error {
	if len(c.templates) == 0 {
		return &ConfigurationError{Field: "segment_catalog", Reason: "catalog is empty"}
	}
	for i, tpl := range c.templates {
		if tpl.ID == "" {
			return &ConfigurationError{Field: "segment_catalog", Reason: "empty template id at index " + strconv.Itoa(i)}
		}
	}
	return nil
}
