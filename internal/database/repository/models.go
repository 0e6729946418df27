package repository

// Record is one normalized ledger entry. Amount sign convention: negative is
// an outflow, positive an inflow. Checknum is "" when not applicable; no
// other absent sentinel is ever stored.
type Record struct {
	ID       int64
	Account  string
	Type     string
	Posted   string
	Amount   float64
	Name     string
	Memo     string
	Checknum string
	Category int64
}

// PostedLayout is the stored posting-timestamp format: lexically sortable,
// carries the UTC offset, and is accepted by both time.Parse and SQLite's
// date functions.
const PostedLayout = "2006-01-02 15:04:05-07:00"

// NormalizeChecknum is the single boundary for the absent-checknum
// convention: source formats deliver nil or empty, storage and comparison
// always see "".
func NormalizeChecknum(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

// Rule is one persisted bulk-categorization mapping.
type Rule struct {
	ID          int64
	Pattern     string
	Category    string
	Subcategory string
}
