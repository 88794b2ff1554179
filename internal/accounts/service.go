package accounts

import (
	"fmt"
	"strings"

	"github.com/homeledger/homeledger/internal/model"
)

// Service provides in-memory lookup over the configured bank accounts.
type Service struct {
	accounts []model.BankAccount
	byID     map[string]model.BankAccount
}

// NewService creates a Service from a slice of accounts. It rejects empty or
// repeated ids and unknown types.
func NewService(accounts []model.BankAccount) (*Service, error) {
	byID := make(map[string]model.BankAccount, len(accounts))
	for i, a := range accounts {
		if strings.TrimSpace(a.ID) == "" {
			return nil, fmt.Errorf("bank account %d: id is required", i)
		}
		if _, dup := byID[a.ID]; dup {
			return nil, fmt.Errorf("bank account %q defined twice", a.ID)
		}
		switch a.Type {
		case model.AccountTypeChecking, model.AccountTypeSavings, model.AccountTypeCreditCard:
		default:
			return nil, fmt.Errorf("bank account %q: unknown type %q", a.ID, a.Type)
		}
		byID[a.ID] = a
	}
	return &Service{accounts: accounts, byID: byID}, nil
}

// All returns all accounts.
func (s *Service) All() []model.BankAccount {
	return s.accounts
}

// Len returns the number of configured accounts.
func (s *Service) Len() int {
	return len(s.accounts)
}

// Get returns an account by ID.
func (s *Service) Get(id string) (model.BankAccount, bool) {
	a, ok := s.byID[id]
	return a, ok
}

// Exists reports whether an account ID exists.
func (s *Service) Exists(id string) bool {
	_, ok := s.byID[id]
	return ok
}

// ByType returns all accounts of the given type.
func (s *Service) ByType(accountType model.AccountType) []model.BankAccount {
	var result []model.BankAccount
	for _, a := range s.accounts {
		if a.Type == accountType {
			result = append(result, a)
		}
	}
	return result
}

// ByLastFour returns the account whose card or account number ends in digits.
func (s *Service) ByLastFour(digits string) (model.BankAccount, bool) {
	for _, a := range s.accounts {
		if a.LastFour != "" && a.LastFour == digits {
			return a, true
		}
	}
	return model.BankAccount{}, false
}
