/*
expense.go - Resolved expense records

PURPOSE:
  The receipt-scanning/OCR collaborator returns raw extractions
  {vendorName, amount, date, categoryId?}. Once a category has been
  resolved - by the user or a suggestion service - the extraction becomes
  an ExpenseRecord, is appended to the expense log, and its amount is
  recorded against the category via AllocationStore.RecordExpense. The
  engine itself never parses receipts.

AUDIT TRAIL:
  The expense log is append-only. Spend never decreases except via an
  explicit correction action, and a category with logged expenses is
  archived rather than removed.
*/
package budget

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/warp/budget-engine/money"
)

// ExpenseRecord is a resolved expense attributed to a category.
type ExpenseRecord struct {
	ID         string
	CategoryID CategoryID
	VendorName string
	Amount     money.Money
	IncurredAt time.Time
	CreatedAt  time.Time
}

// NewExpense builds a record with a generated id.
func NewExpense(categoryID CategoryID, vendor string, amount money.Money, incurredAt time.Time) ExpenseRecord {
	return ExpenseRecord{
		ID:         uuid.NewString(),
		CategoryID: categoryID,
		VendorName: vendor,
		Amount:     amount,
		IncurredAt: incurredAt,
		CreatedAt:  time.Now().UTC(),
	}
}

// ExpenseLog persists expense records. Append-only: corrections are new
// records, never edits.
type ExpenseLog interface {
	AppendExpense(ctx context.Context, rec ExpenseRecord) error
	Expenses(ctx context.Context, categoryID CategoryID) ([]ExpenseRecord, error)
	AllExpenses(ctx context.Context) ([]ExpenseRecord, error)
}
