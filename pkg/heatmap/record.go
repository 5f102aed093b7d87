package heatmap

import "github.com/matzehuels/revenuemap/pkg/treemap"

// OtherID is the id of the record that [Top] rolls the long tail into.
const OtherID = "other"

// UncategorizedLabel names the group for records without a category.
const UncategorizedLabel = "Uncategorized"

// Record is the revenue of one product (or group) over the reporting period.
type Record struct {
	ID        string  `json:"id" yaml:"id" toml:"id" validate:"required,max=256"`
	Label     string  `json:"label" yaml:"label" toml:"label" validate:"max=200"`
	Category  string  `json:"category,omitempty" yaml:"category,omitempty" toml:"category" validate:"max=200"`
	Revenue   float64 `json:"revenue" yaml:"revenue" toml:"revenue"`
	ChangePct float64 `json:"change_pct" yaml:"change_pct" toml:"change_pct"`
	Orders    int     `json:"orders,omitempty" yaml:"orders,omitempty" toml:"orders" validate:"gte=0"`
}

// DisplayLabel returns Label, falling back to ID.
func (r Record) DisplayLabel() string {
	if r.Label != "" {
		return r.Label
	}
	return r.ID
}

// Dataset is a titled set of records for one reporting period.
type Dataset struct {
	Title    string   `json:"title,omitempty" yaml:"title,omitempty" toml:"title" validate:"max=200"`
	Period   string   `json:"period,omitempty" yaml:"period,omitempty" toml:"period" validate:"max=100"`
	Currency string   `json:"currency,omitempty" yaml:"currency,omitempty" toml:"currency" validate:"omitempty,len=3,alpha"`
	Records  []Record `json:"records" yaml:"records" toml:"records" validate:"dive"`
}

// TotalRevenue sums the revenue of all records.
func (d *Dataset) TotalRevenue() float64 {
	var total float64
	for _, r := range d.Records {
		total += r.Revenue
	}
	return total
}

// Items converts records to treemap items: revenue is the weight, percent
// change the color input, and the record itself the payload.
func Items(records []Record) []treemap.Item[Record] {
	items := make([]treemap.Item[Record], len(records))
	for i, r := range records {
		items[i] = treemap.Item[Record]{
			ID:     r.ID,
			Weight: r.Revenue,
			Change: r.ChangePct,
			Data:   r,
		}
	}
	return items
}
