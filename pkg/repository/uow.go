package repository

import "context"

// UnitOfWork binds transaction boundaries and repository access together so
// every repository obtained inside Do shares the same DB session. Services
// never touch *gorm.DB directly.
type UnitOfWork interface {
	// Do executes fn within a transaction boundary. If fn returns an
	// error the transaction is rolled back.
	Do(ctx context.Context, fn func(uow UnitOfWork) error) error

	// OrderRepository returns the order repository bound to the current
	// session.
	OrderRepository() (OrderRepository, error)

	// StockAccountRepository returns the stock account repository bound to
	// the current session.
	StockAccountRepository() (StockAccountRepository, error)
}
