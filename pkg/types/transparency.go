package types

type TransparencySummary struct {
	NeighborhoodID   string `db:"neighborhood_id"`
	NeighborhoodName string `db:"neighborhood_name"`
	CollectedCount   int64  `db:"collected_count"`
	ReceiptCount     int64  `db:"receipt_count"`
	TotalWeightGrams int64  `db:"total_weight_grams"`
}

type TransparencyReport struct {
	Items []*TransparencySummary
}

func (r *TransparencyReport) ItemsLen() int {
	if r == nil {
		return 0
	}
	return len(r.Items)
}
