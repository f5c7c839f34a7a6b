package domain

// TransactionType classifies categories and transactions
type TransactionType string

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

// Valid reports whether t is one of the known classifications
func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

// Models lists every persisted entity, parents first
func Models() []any {
	return []any{&User{}, &Category{}, &FinancialTransaction{}}
}
