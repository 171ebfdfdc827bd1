package enums

// CartIssueKind tags a problem found while re-validating a cart.
type CartIssueKind string

const (
	CartIssueUnavailable  CartIssueKind = "unavailable"
	CartIssueStock        CartIssueKind = "stock"
	CartIssueMinimumOrder CartIssueKind = "minimum_order"
	CartIssuePriceChange  CartIssueKind = "price_change"
)

// Blocking reports whether the issue would make checkout fail.
func (k CartIssueKind) Blocking() bool {
	return k == CartIssueUnavailable || k == CartIssueStock
}
