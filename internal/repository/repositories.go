package repository

import "github.com/jackc/pgx/v5/pgxpool"

// Repositories groups the storage ports used by the services.
type Repositories struct {
	Customers    CustomerRepository
	Interactions InteractionRepository
	Reviews      ReviewRepository
	Users        UserRepository
	Tx           Transactor
}

// NewPostgres wires every repository against pool.
func NewPostgres(pool *pgxpool.Pool) Repositories {
	return Repositories{
		Customers:    NewCustomerRepository(pool),
		Interactions: NewInteractionRepository(pool),
		Reviews:      NewReviewRepository(pool),
		Users:        NewUserRepository(pool),
		Tx:           NewTransactor(pool),
	}
}
