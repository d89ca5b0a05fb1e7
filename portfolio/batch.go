package portfolio

import (
	"github.com/bcdannyboy/optbook/greeks"
	"github.com/bcdannyboy/optbook/models"
)

// priceBatch packs the pricable rows of a chunk into struct-of-arrays
// columns and evaluates them in one kernel call. Lane results are checked
// exactly as the engine checks a single evaluation.
func (e *Evaluator) priceBatch(rows []Row, params []models.Params) {
	lanes := make([]int, 0, len(rows))
	for i := range rows {
		if pricable(rows[i]) {
			lanes = append(lanes, i)
		}
	}
	if len(lanes) == 0 {
		return
	}

	b := models.NewBatch(len(lanes))
	for lane, i := range lanes {
		b.Set(lane, params[i])
	}
	e.batch.EvaluateBatch(b)

	for lane, i := range lanes {
		p := params[i]
		g := b.Greeks(lane)
		_, err := models.CheckValue(b.Value[lane], p)
		if err == nil {
			err = greeks.Check(g, p)
		}
		e.store(&rows[i], b.Value[lane], g, err)
	}
}
