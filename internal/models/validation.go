package models

// IssueKind classifies an availability problem for one cart line.
type IssueKind string

const (
	IssueNotFound          IssueKind = "not_found"
	IssueOutOfStock        IssueKind = "out_of_stock"
	IssueInsufficientStock IssueKind = "insufficient_stock"
)

// ValidationIssue describes why one cart line cannot be fulfilled at
// the current stock levels. Issues are ephemeral: recomputed on demand
// and fully superseded by the next validation pass.
type ValidationIssue struct {
	ProductID         string    `json:"product_id"`
	ProductName       string    `json:"product_name"`
	Kind              IssueKind `json:"issue"`
	CurrentStock      int       `json:"current_stock"`
	RequestedQuantity int       `json:"requested_quantity"`
}

// ValidationReport is the outcome of one full validation pass over a
// cart snapshot, keyed by product ID.
type ValidationReport struct {
	Issues map[string]ValidationIssue `json:"issues"`
}

// HasIssues reports whether any line failed validation.
func (r *ValidationReport) HasIssues() bool {
	return r != nil && len(r.Issues) > 0
}

// Issue returns the issue recorded for a product, if any.
func (r *ValidationReport) Issue(productID string) (ValidationIssue, bool) {
	if r == nil {
		return ValidationIssue{}, false
	}
	issue, ok := r.Issues[productID]
	return issue, ok
}
