package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/crm-service/internal/domain"
)

// Customer sort keys.
const (
	SortByName      = "name"
	SortByLastName  = "last_name"
	SortByCompany   = "company"
	SortByCreatedAt = "created_at"
)

// CustomerQuery captures search, filter, sort and paging parameters. A zero Limit
// returns every match.
type CustomerQuery struct {
	Search     string
	Status     string
	CustomerID *int64
	SortBy     string
	Descending bool
	Limit      int
	Offset     int
}

// CustomerRepository encapsulates customer persistence.
type CustomerRepository interface {
	Create(ctx context.Context, customer *domain.Customer) error
	Update(ctx context.Context, customer *domain.Customer) error
	Touch(ctx context.Context, id int64) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*domain.Customer, error)
	GetByEmail(ctx context.Context, email string) (*domain.Customer, error)
	List(ctx context.Context, query CustomerQuery) ([]domain.Customer, int, error)
}

type customerRepository struct {
	db
}

// NewCustomerRepository instantiates repository.
func NewCustomerRepository(pool *pgxpool.Pool) CustomerRepository {
	return &customerRepository{db{pool: pool}}
}

const customerColumns = `id, first_name, last_name, email, phone, company, status, created_at, updated_at`

func (r *customerRepository) Create(ctx context.Context, customer *domain.Customer) error {
	const query = `
        INSERT INTO customers (first_name, last_name, email, phone, company, status)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at, updated_at`
	err := r.conn(ctx).QueryRow(ctx, query,
		customer.FirstName,
		customer.LastName,
		customer.Email,
		customer.Phone,
		customer.Company,
		customer.Status,
	).Scan(&customer.ID, &customer.CreatedAt, &customer.UpdatedAt)
	return translate(err)
}

func (r *customerRepository) Update(ctx context.Context, customer *domain.Customer) error {
	const query = `
        UPDATE customers SET first_name=$1, last_name=$2, email=$3, phone=$4, company=$5, status=$6,
            updated_at=NOW()
        WHERE id=$7
        RETURNING updated_at`
	err := r.conn(ctx).QueryRow(ctx, query,
		customer.FirstName,
		customer.LastName,
		customer.Email,
		customer.Phone,
		customer.Company,
		customer.Status,
		customer.ID,
	).Scan(&customer.UpdatedAt)
	return translate(err)
}

func (r *customerRepository) Touch(ctx context.Context, id int64) error {
	return rowsAffected(r.conn(ctx).Exec(ctx, `UPDATE customers SET updated_at=NOW() WHERE id=$1`, id))
}

func (r *customerRepository) Delete(ctx context.Context, id int64) error {
	return rowsAffected(r.conn(ctx).Exec(ctx, `DELETE FROM customers WHERE id=$1`, id))
}

func (r *customerRepository) GetByID(ctx context.Context, id int64) (*domain.Customer, error) {
	return r.fetchSingle(ctx, `SELECT `+customerColumns+` FROM customers WHERE id=$1`, id)
}

func (r *customerRepository) GetByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	return r.fetchSingle(ctx, `SELECT `+customerColumns+` FROM customers WHERE email=$1`, email)
}

func (r *customerRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Customer, error) {
	customer, err := scanCustomer(r.conn(ctx).QueryRow(ctx, query, arg))
	if err != nil {
		return nil, translate(err)
	}
	return customer, nil
}

func (r *customerRepository) List(ctx context.Context, q CustomerQuery) ([]domain.Customer, int, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if q.CustomerID != nil {
		args = append(args, *q.CustomerID)
		clauses = append(clauses, fmt.Sprintf("id=$%d", len(args)))
	}
	if q.Status != "" {
		args = append(args, q.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}
	if term := strings.TrimSpace(q.Search); term != "" {
		args = append(args, likePattern(term))
		n := len(args)
		clauses = append(clauses, fmt.Sprintf(
			"(first_name ILIKE $%d OR last_name ILIKE $%d OR email ILIKE $%d OR company ILIKE $%d)", n, n, n, n))
	}
	where := " WHERE " + strings.Join(clauses, " AND ")

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM customers`+where, args...).Scan(&total); err != nil {
		return nil, 0, translate(err)
	}

	query := `SELECT ` + customerColumns + ` FROM customers` + where + ` ORDER BY ` + orderClause(q.SortBy, q.Descending)
	if q.Limit > 0 {
		args = append(args, q.Limit, q.Offset)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, translate(err)
	}
	defer rows.Close()

	customers := make([]domain.Customer, 0)
	for rows.Next() {
		customer, err := scanCustomer(rows)
		if err != nil {
			return nil, 0, err
		}
		customers = append(customers, *customer)
	}
	return customers, total, rows.Err()
}

func orderClause(sortBy string, desc bool) string {
	dir := "ASC"
	if desc {
		dir = "DESC"
	}
	var keys []string
	switch sortBy {
	case SortByName:
		keys = []string{"LOWER(first_name)", "LOWER(last_name)"}
	case SortByCompany:
		keys = []string{"LOWER(company)"}
	case SortByCreatedAt:
		keys = []string{"created_at"}
	default:
		keys = []string{"LOWER(last_name)", "LOWER(first_name)"}
	}
	keys = append(keys, "id")
	for i, k := range keys {
		keys[i] = k + " " + dir
	}
	return strings.Join(keys, ", ")
}

func scanCustomer(row pgx.Row) (*domain.Customer, error) {
	var customer domain.Customer
	if err := row.Scan(
		&customer.ID,
		&customer.FirstName,
		&customer.LastName,
		&customer.Email,
		&customer.Phone,
		&customer.Company,
		&customer.Status,
		&customer.CreatedAt,
		&customer.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &customer, nil
}
