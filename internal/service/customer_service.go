package service

import (
	"context"
	"errors"
	"math"
	"strings"

	"github.com/spec-kit/crm-service/internal/domain"
	"github.com/spec-kit/crm-service/internal/events"
	"github.com/spec-kit/crm-service/internal/repository"
	"github.com/spec-kit/crm-service/internal/validation"
	apperrors "github.com/spec-kit/crm-service/pkg/errorutil"
)

// Paging defaults for customer listings.
const (
	DefaultPage    = 1
	DefaultPerPage = 20
	MaxPerPage     = 100
	MaxExportRows  = 10000
)

// Sort directions.
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// CustomerService coordinates customer workflows.
type CustomerService struct {
	repos     repository.Repositories
	validator *validation.Validator
	publisher publisher
}

// CustomerInput describes a new customer.
type CustomerInput struct {
	FirstName string `json:"first_name" validate:"required,max=50"`
	LastName  string `json:"last_name" validate:"required,max=50"`
	Email     string `json:"email" validate:"required,max=120,crm_email"`
	Phone     string `json:"phone" validate:"max=20"`
	Company   string `json:"company" validate:"max=100"`
	Status    string `json:"status" validate:"max=20"`
}

// CustomerPatch is a partial update. Rating, when set, goes through the current
// rating upsert together with ReviewText.
type CustomerPatch struct {
	FirstName  *string  `json:"first_name" validate:"omitnil,min=1,max=50"`
	LastName   *string  `json:"last_name" validate:"omitnil,min=1,max=50"`
	Email      *string  `json:"email" validate:"omitnil,max=120,crm_email"`
	Phone      *string  `json:"phone" validate:"omitnil,max=20"`
	Company    *string  `json:"company" validate:"omitnil,max=100"`
	Status     *string  `json:"status" validate:"omitnil,min=1,max=20"`
	Rating     *float64 `json:"rating"`
	ReviewText *string  `json:"review"`
}

// CustomerListParams are the raw listing parameters. Zero values select the defaults.
type CustomerListParams struct {
	Search    string
	Status    string
	SortBy    string
	SortOrder string
	Page      int
	PerPage   int
	// CustomerID restricts the listing to one customer.
	CustomerID *int64
}

// CustomerPage is one page of a listing.
type CustomerPage struct {
	Items      []domain.CustomerWithRatings
	Page       int
	PerPage    int
	Total      int
	TotalPages int
}

// CustomerDetail is a customer with its interaction log.
type CustomerDetail struct {
	domain.CustomerWithRatings
	Interactions []domain.Interaction
}

// NewCustomerService constructs the service.
func NewCustomerService(deps Dependencies) *CustomerService {
	deps = deps.withDefaults()
	return &CustomerService{
		repos:     deps.Repos,
		validator: deps.Validator,
		publisher: publisher{dispatcher: deps.Dispatcher, logger: deps.Logger},
	}
}

// Create validates and persists a customer. The status defaults to lead.
func (s *CustomerService) Create(ctx context.Context, input CustomerInput) (*CustomerDetail, error) {
	input.FirstName = strings.TrimSpace(input.FirstName)
	input.LastName = strings.TrimSpace(input.LastName)
	input.Email = strings.TrimSpace(input.Email)
	input.Status = strings.TrimSpace(input.Status)
	if err := s.validator.Struct(input); err != nil {
		return nil, err
	}

	customer := &domain.Customer{
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Email:     input.Email,
		Phone:     strings.TrimSpace(input.Phone),
		Company:   strings.TrimSpace(input.Company),
		Status:    input.Status,
	}
	if customer.Status == "" {
		customer.Status = domain.DefaultCustomerStatus
	}

	err := s.repos.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.ensureEmailFree(ctx, customer.Email, 0); err != nil {
			return err
		}
		return mapRepoError(s.repos.Customers.Create(ctx, customer), resourceCustomer)
	})
	if err != nil {
		return nil, err
	}

	s.publishCustomer(ctx, events.EventCustomerCreated, customer, nil)
	return &CustomerDetail{CustomerWithRatings: domain.WithRatings(*customer, nil), Interactions: []domain.Interaction{}}, nil
}

// Get loads a customer together with its interactions and ratings.
func (s *CustomerService) Get(ctx context.Context, id int64) (*CustomerDetail, error) {
	customer, err := s.repos.Customers.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, resourceCustomer)
	}
	return s.detail(ctx, customer)
}

// Update applies a partial update. Email changes are checked for uniqueness and a
// rating is written through the current rating upsert in the same transaction.
func (s *CustomerService) Update(ctx context.Context, id int64, patch CustomerPatch) (*CustomerDetail, error) {
	trimPtr(patch.FirstName)
	trimPtr(patch.LastName)
	trimPtr(patch.Email)
	trimPtr(patch.Status)
	if err := s.validator.Struct(patch); err != nil {
		return nil, err
	}
	var rating *int
	if patch.Rating != nil {
		value, err := validation.Rating(*patch.Rating)
		if err != nil {
			return nil, err
		}
		rating = &value
	}

	var (
		customer *domain.Customer
		review   *domain.Review
		created  bool
		fields   []string
	)
	err := s.repos.Tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		customer, err = s.repos.Customers.GetByID(ctx, id)
		if err != nil {
			return mapRepoError(err, resourceCustomer)
		}
		if patch.Email != nil && !strings.EqualFold(*patch.Email, customer.Email) {
			if err := s.ensureEmailFree(ctx, *patch.Email, id); err != nil {
				return err
			}
		}

		fields = applyCustomerPatch(customer, patch)
		if len(fields) > 0 {
			if err := s.repos.Customers.Update(ctx, customer); err != nil {
				return mapRepoError(err, resourceCustomer)
			}
		}
		if rating != nil {
			review, created, err = upsertCurrentRating(ctx, s.repos, id, *rating, patch.ReviewText)
			if err != nil {
				return err
			}
			fields = append(fields, "rating")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	detail, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(fields) > 0 {
		s.publishCustomer(ctx, events.EventCustomerUpdated, &detail.Customer, fields)
	}
	if review != nil {
		s.publisher.publish(ctx, ratingSetEvent(review, created, detail.AverageRating))
	}
	return detail, nil
}

// Delete removes a customer with its reviews and interactions and unlinks any user
// account pointing at it.
func (s *CustomerService) Delete(ctx context.Context, id int64) error {
	var customer *domain.Customer
	err := s.repos.Tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		customer, err = s.repos.Customers.GetByID(ctx, id)
		if err != nil {
			return mapRepoError(err, resourceCustomer)
		}
		if err := s.repos.Reviews.DeleteByCustomer(ctx, id); err != nil {
			return mapRepoError(err, resourceCustomer)
		}
		if err := s.repos.Interactions.DeleteByCustomer(ctx, id); err != nil {
			return mapRepoError(err, resourceCustomer)
		}
		if err := s.repos.Users.UnlinkCustomer(ctx, id); err != nil {
			return mapRepoError(err, resourceCustomer)
		}
		return mapRepoError(s.repos.Customers.Delete(ctx, id), resourceCustomer)
	})
	if err != nil {
		return err
	}

	s.publishCustomer(ctx, events.EventCustomerDeleted, customer, nil)
	return nil
}

// List searches, filters, sorts and pages customers. A page past the end is empty.
func (s *CustomerService) List(ctx context.Context, params CustomerListParams) (*CustomerPage, error) {
	query, err := customerQuery(params)
	if err != nil {
		return nil, err
	}
	page, perPage := normalizePaging(params.Page, params.PerPage)
	query.Limit = perPage
	query.Offset = (page - 1) * perPage

	customers, total, err := s.repos.Customers.List(ctx, query)
	if err != nil {
		return nil, mapRepoError(err, resourceCustomer)
	}
	items, err := s.attachRatings(ctx, customers)
	if err != nil {
		return nil, err
	}

	totalPages := 0
	if total > 0 {
		totalPages = (total + perPage - 1) / perPage
	}
	return &CustomerPage{Items: items, Page: page, PerPage: perPage, Total: total, TotalPages: totalPages}, nil
}

// Export returns every customer matching the listing filters, up to MaxExportRows.
func (s *CustomerService) Export(ctx context.Context, params CustomerListParams) ([]domain.CustomerWithRatings, error) {
	query, err := customerQuery(params)
	if err != nil {
		return nil, err
	}
	query.Limit = MaxExportRows

	customers, _, err := s.repos.Customers.List(ctx, query)
	if err != nil {
		return nil, mapRepoError(err, resourceCustomer)
	}
	return s.attachRatings(ctx, customers)
}

func (s *CustomerService) detail(ctx context.Context, customer *domain.Customer) (*CustomerDetail, error) {
	reviews, err := s.repos.Reviews.ListByCustomer(ctx, customer.ID)
	if err != nil {
		return nil, mapRepoError(err, resourceReview)
	}
	interactions, err := s.repos.Interactions.ListByCustomer(ctx, customer.ID)
	if err != nil {
		return nil, mapRepoError(err, resourceCustomer)
	}
	if interactions == nil {
		interactions = []domain.Interaction{}
	}
	return &CustomerDetail{CustomerWithRatings: domain.WithRatings(*customer, reviews), Interactions: interactions}, nil
}

func (s *CustomerService) attachRatings(ctx context.Context, customers []domain.Customer) ([]domain.CustomerWithRatings, error) {
	items := make([]domain.CustomerWithRatings, 0, len(customers))
	if len(customers) == 0 {
		return items, nil
	}
	ids := make([]int64, len(customers))
	for i, c := range customers {
		ids[i] = c.ID
	}
	reviews, err := s.repos.Reviews.ListByCustomerIDs(ctx, ids)
	if err != nil {
		return nil, mapRepoError(err, resourceReview)
	}
	for _, c := range customers {
		items = append(items, domain.WithRatings(c, reviews[c.ID]))
	}
	return items, nil
}

func (s *CustomerService) ensureEmailFree(ctx context.Context, email string, selfID int64) error {
	existing, err := s.repos.Customers.GetByEmail(ctx, email)
	switch {
	case err == nil && existing.ID != selfID:
		return apperrors.NewConflict("email already exists", map[string]any{"field": "email"})
	case err == nil, errors.Is(err, repository.ErrNotFound):
		return nil
	default:
		return mapRepoError(err, resourceCustomer)
	}
}

func (s *CustomerService) publishCustomer(ctx context.Context, eventType events.EventType, customer *domain.Customer, fields []string) {
	event := events.New(eventType, events.Actor{}, events.CustomerChangedPayload{Email: customer.Email, Fields: fields})
	event.CustomerID = customer.ID
	s.publisher.publish(ctx, event)
}

func applyCustomerPatch(c *domain.Customer, patch CustomerPatch) []string {
	var fields []string
	set := func(name string, dst *string, src *string) {
		if src != nil && *src != *dst {
			*dst = *src
			fields = append(fields, name)
		}
	}
	set("first_name", &c.FirstName, patch.FirstName)
	set("last_name", &c.LastName, patch.LastName)
	set("email", &c.Email, patch.Email)
	set("phone", &c.Phone, patch.Phone)
	set("company", &c.Company, patch.Company)
	set("status", &c.Status, patch.Status)
	return fields
}

func customerQuery(params CustomerListParams) (repository.CustomerQuery, error) {
	query := repository.CustomerQuery{
		Search:     strings.TrimSpace(params.Search),
		Status:     strings.TrimSpace(params.Status),
		CustomerID: params.CustomerID,
		SortBy:     repository.SortByLastName,
	}

	switch sortBy := strings.ToLower(strings.TrimSpace(params.SortBy)); sortBy {
	case "":
	case repository.SortByName, repository.SortByLastName, repository.SortByCompany, repository.SortByCreatedAt:
		query.SortBy = sortBy
	default:
		return query, apperrors.NewValidationError("invalid sort_by", map[string]any{
			"sort_by": "must be one of: name last_name company created_at",
		})
	}

	switch order := strings.ToLower(strings.TrimSpace(params.SortOrder)); order {
	case "", SortAsc:
	case SortDesc:
		query.Descending = true
	default:
		return query, apperrors.NewValidationError("invalid sort_order", map[string]any{
			"sort_order": "must be one of: asc desc",
		})
	}
	return query, nil
}

func normalizePaging(page, perPage int) (int, int) {
	if page < 1 {
		page = DefaultPage
	}
	if page > math.MaxInt32 {
		page = math.MaxInt32
	}
	switch {
	case perPage < 1:
		perPage = DefaultPerPage
	case perPage > MaxPerPage:
		perPage = MaxPerPage
	}
	return page, perPage
}

func trimPtr(s *string) {
	if s != nil {
		*s = strings.TrimSpace(*s)
	}
}
