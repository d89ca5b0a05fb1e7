// Package tradier reads option chain and quote history snapshots in the
// Tradier market data JSON shape and turns them into engine inputs.
package tradier

type QuoteHistory struct {
	History struct {
		Day []Day `json:"day"`
	} `json:"history"`
}

// Day is one daily bar.
type Day struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int     `json:"volume"`
}

type Option struct {
	Symbol         string  `json:"symbol"`
	Description    string  `json:"description"`
	Type           string  `json:"type"`
	Bid            float64 `json:"bid"`
	Ask            float64 `json:"ask"`
	Underlying     string  `json:"underlying"`
	Strike         float64 `json:"strike"`
	OpenInterest   int     `json:"open_interest"`
	ContractSize   int     `json:"contract_size"`
	ExpirationDate string  `json:"expiration_date"`
	ExpirationType string  `json:"expiration_type"`
	OptionType     string  `json:"option_type"`
	RootSymbol     string  `json:"root_symbol"`
	Greeks         struct {
		Delta     float64 `json:"delta"`
		Gamma     float64 `json:"gamma"`
		Theta     float64 `json:"theta"`
		Vega      float64 `json:"vega"`
		Rho       float64 `json:"rho"`
		BidIv     float64 `json:"bid_iv"`
		MidIv     float64 `json:"mid_iv"`
		AskIv     float64 `json:"ask_iv"`
		SmvVol    float64 `json:"smv_vol"`
		UpdatedAt string  `json:"updated_at"`
	} `json:"greeks"`
}

type OptionChain struct {
	Options        OptionList `json:"options"`
	ExpirationDate string     `json:"expiration_date"`
}

type OptionList struct {
	Option []Option `json:"option"`
}

// Mid returns the bid/ask midpoint, or false for a one-sided or crossed
// quote.
func (o Option) Mid() (float64, bool) {
	if o.Bid <= 0 || o.Ask <= 0 || o.Ask < o.Bid {
		return 0, false
	}
	return 0.5 * (o.Bid + o.Ask), true
}
