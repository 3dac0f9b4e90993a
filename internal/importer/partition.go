package importer

// Partition is the split of one batch into creates and updates.
type Partition struct {
	Create  []ParsedRow
	Update  []ParsedRow
	Skipped []SkippedRow
}

// PartitionRows splits rows by whether their SKU is known to idx. Order is
// preserved. For a SKU repeated within rows the last row wins and takes the
// position of the first; superseded rows are reported as skipped.
func PartitionRows(rows []ParsedRow, idx KeyIndex) Partition {
	var p Partition
	type slot struct {
		update bool
		pos    int
	}
	seen := make(map[string]slot, len(rows))
	for _, row := range rows {
		sku := row.Product.SKU
		if sku == "" {
			p.Skipped = append(p.Skipped, SkippedRow{Line: row.Line, Reason: SkipEmptyKey})
			continue
		}
		if s, ok := seen[sku]; ok {
			target := p.Create
			if s.update {
				target = p.Update
			}
			prev := target[s.pos]
			p.Skipped = append(p.Skipped, SkippedRow{Line: prev.Line, SKU: sku, Reason: SkipDuplicateInBatch})
			row.Product.ID = prev.Product.ID
			target[s.pos] = row
			continue
		}
		if id, ok := idx.Lookup(sku); ok {
			row.Product.ID = id
			seen[sku] = slot{update: true, pos: len(p.Update)}
			p.Update = append(p.Update, row)
			continue
		}
		seen[sku] = slot{pos: len(p.Create)}
		p.Create = append(p.Create, row)
	}
	return p
}
