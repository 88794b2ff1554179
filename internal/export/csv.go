package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/homeledger/homeledger/internal/model"
)

// Header is the CSV header of a transaction export.
const Header = "id,account_id,date,description,amount,balance,type,category_id,subcategory_id,user_description,status,linked_transaction_id,savings_goal_id,budget_item_id,amount_override,manually_changed,created_at,fingerprint"

const (
	numFields      = 18
	colID          = 0
	colAccountID   = 1
	colDate        = 2
	colDesc        = 3
	colAmount      = 4
	colBalance     = 5
	colType        = 6
	colCategory    = 7
	colSubcategory = 8
	colUserDesc    = 9
	colStatus      = 10
	colLinked      = 11
	colSavingsGoal = 12
	colBudgetItem  = 13
	colOverride    = 14
	colManual      = 15
	colCreatedAt   = 16
	colFingerprint = 17
)

// WriteTransactions writes txns to w (including header).
func WriteTransactions(w io.Writer, txns []model.Transaction) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(strings.Split(Header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, t := range txns {
		if err := cw.Write(MarshalTransaction(t)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	return cw.Error()
}

// MarshalTransaction converts a Transaction to a CSV row.
func MarshalTransaction(t model.Transaction) []string {
	row := make([]string, numFields)
	row[colID] = t.ID
	row[colAccountID] = t.AccountID
	row[colDate] = t.PostedAt.Format(model.DateFormat)
	row[colDesc] = t.Description
	row[colAmount] = t.Amount.StringFixed(2)
	row[colBalance] = optDecimal(t.Balance)
	row[colType] = t.Type
	row[colCategory] = optString(t.CategoryID)
	row[colSubcategory] = optString(t.SubcategoryID)
	row[colUserDesc] = t.UserDescription
	row[colStatus] = string(t.Status)
	row[colLinked] = optString(t.LinkedTransactionID)
	row[colSavingsGoal] = optString(t.SavingsGoalID)
	row[colBudgetItem] = optString(t.BudgetItemID)
	row[colOverride] = optDecimal(t.AmountOverride)
	row[colManual] = strconv.FormatBool(t.ManuallyChanged)
	row[colCreatedAt] = t.CreatedAt.UTC().Format(time.RFC3339)
	row[colFingerprint] = t.Fingerprint()
	return row
}

func optString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func optDecimal(d *decimal.Decimal) string {
	if d == nil {
		return ""
	}
	return d.StringFixed(2)
}
