package model

// AccountType classifies bank accounts.
type AccountType string

const (
	AccountTypeChecking   AccountType = "checking"
	AccountTypeSavings    AccountType = "savings"
	AccountTypeCreditCard AccountType = "credit_card"
)

// BankAccount is an account whose statements can be reconciled.
type BankAccount struct {
	ID       string
	Name     string
	Type     AccountType
	LastFour string
}
