package listing

import "github.com/stanzacms/stanza/db"

// OrderScope resolves the repository ordering for this request. A
// request-supplied sort needs both sortKey and sortDir; the literal key
// "name" is rewritten to the module's title column, and the final order
// column comes from the matching index column's sort key when one
// exists. Static default orders apply afterwards, unless reorder mode
// is active: manual ordering and default ordering are mutually
// exclusive.
func (b *Builder) OrderScope(req *Request) []db.Order {
	orders := []db.Order{}

	if req.SortKey != "" && req.SortDir != "" {
		key := req.SortKey
		if key == "name" {
			key = b.cfg.TitleColumnKey
		}
		if col := b.IndexColumns().FindByKey(key); col != nil {
			key = col.SortKey()
		}
		orders = append(orders, db.Order{Column: key, Dir: req.SortDir})
	}

	if b.Resolve(OptionReorder, nil) {
		return orders
	}

	for _, def := range b.cfg.DefaultOrders {
		if !containsOrder(orders, def.Column) {
			orders = append(orders, def)
		}
	}
	return orders
}

func containsOrder(orders []db.Order, column string) bool {
	for _, o := range orders {
		if o.Column == column {
			return true
		}
	}
	return false
}
