// Package report renders portfolio results for people and for programs.
package report

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/xhhuango/json"

	"github.com/bcdannyboy/optbook/portfolio"
)

// Places is the number of decimals shown in tables.
const Places = 4

func fixed(x float64) string {
	return decimal.NewFromFloat(x).StringFixed(Places)
}

// WriteTable writes one line per position followed by the signed totals.
func WriteTable(w io.Writer, res *portfolio.Result) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "position\tqty\tvalue\tdelta\tgamma\tvega\ttheta\trho\tiv\tvol src\tstatus\t")
	for _, r := range res.Rows {
		iv := "-"
		if r.ImpliedVol != nil && r.ImpliedVol.Converged {
			iv = fixed(r.ImpliedVol.Volatility)
		}
		status := "ok"
		if r.Err != nil {
			status = r.Err.Error()
		}
		if !r.Priced {
			fmt.Fprintf(tw, "%s\t%s\t-\t-\t-\t-\t-\t-\t%s\t%s\t%s\t\n",
				r.PositionID, fixed(r.Quantity), iv, r.VolSource, status)
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			r.PositionID, fixed(r.Quantity), fixed(r.Value),
			fixed(r.Greeks.Delta), fixed(r.Greeks.Gamma), fixed(r.Greeks.Vega),
			fixed(r.Greeks.Theta), fixed(r.Greeks.Rho), iv, r.VolSource, status)
	}
	t := res.Totals
	fmt.Fprintf(tw, "TOTAL\t\t%s\t%s\t%s\t%s\t%s\t%s\t\t\t%d priced, %d failed, %d errored\t\n",
		fixed(t.Value), fixed(t.Greeks.Delta), fixed(t.Greeks.Gamma), fixed(t.Greeks.Vega),
		fixed(t.Greeks.Theta), fixed(t.Greeks.Rho), t.Priced, t.Failed, t.Errored)
	return tw.Flush()
}

type greeksJSON struct {
	Delta decimal.Decimal `json:"delta"`
	Gamma decimal.Decimal `json:"gamma"`
	Vega  decimal.Decimal `json:"vega"`
	Theta decimal.Decimal `json:"theta"`
	Rho   decimal.Decimal `json:"rho"`
}

type rowJSON struct {
	Position   string           `json:"position"`
	Quantity   decimal.Decimal  `json:"quantity"`
	Value      *decimal.Decimal `json:"value,omitempty"`
	Greeks     *greeksJSON      `json:"greeks,omitempty"`
	ImpliedVol *decimal.Decimal `json:"implied_vol,omitempty"`
	Volatility *decimal.Decimal `json:"volatility,omitempty"`
	VolSource  string           `json:"vol_source"`
	Error      string           `json:"error,omitempty"`
}

type totalsJSON struct {
	Value   decimal.Decimal `json:"value"`
	Greeks  greeksJSON      `json:"greeks"`
	Priced  int             `json:"priced"`
	Failed  int             `json:"failed"`
	Errored int             `json:"errored"`
}

type resultJSON struct {
	Positions []rowJSON  `json:"positions"`
	Totals    totalsJSON `json:"totals"`
}

func dec(x float64) decimal.Decimal {
	return decimal.NewFromFloat(x).Round(10)
}

func decPtr(x float64) *decimal.Decimal {
	d := dec(x)
	return &d
}

func greeksOf(d, g, v, t, r float64) greeksJSON {
	return greeksJSON{Delta: dec(d), Gamma: dec(g), Vega: dec(v), Theta: dec(t), Rho: dec(r)}
}

// WriteJSON writes the result as indented JSON with decimals rounded to 10
// places.
func WriteJSON(w io.Writer, res *portfolio.Result) error {
	out := resultJSON{Positions: make([]rowJSON, 0, len(res.Rows))}
	for _, r := range res.Rows {
		row := rowJSON{
			Position:  r.PositionID,
			Quantity:  dec(r.Quantity),
			VolSource: r.VolSource.String(),
		}
		if r.Priced {
			g := greeksOf(r.Greeks.Delta, r.Greeks.Gamma, r.Greeks.Vega, r.Greeks.Theta, r.Greeks.Rho)
			row.Value, row.Greeks, row.Volatility = decPtr(r.Value), &g, decPtr(r.Volatility)
		}
		if r.ImpliedVol != nil && r.ImpliedVol.Converged {
			row.ImpliedVol = decPtr(r.ImpliedVol.Volatility)
		}
		if r.Err != nil {
			row.Error = r.Err.Error()
		}
		out.Positions = append(out.Positions, row)
	}
	t := res.Totals
	out.Totals = totalsJSON{
		Value:  dec(t.Value),
		Greeks: greeksOf(t.Greeks.Delta, t.Greeks.Gamma, t.Greeks.Vega, t.Greeks.Theta, t.Greeks.Rho),
		Priced:  t.Priced,
		Failed:  t.Failed,
		Errored: t.Errored,
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}
