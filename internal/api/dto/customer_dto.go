package dto

import (
	"time"

	"github.com/spec-kit/crm-service/internal/domain"
	"github.com/spec-kit/crm-service/internal/service"
)

// CreateCustomerRequest payload.
type CreateCustomerRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Company   string `json:"company"`
	Status    string `json:"status"`
}

// Input converts the payload for the service.
func (r CreateCustomerRequest) Input() service.CustomerInput {
	return service.CustomerInput{
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Email:     r.Email,
		Phone:     r.Phone,
		Company:   r.Company,
		Status:    r.Status,
	}
}

// UpdateCustomerRequest is a partial update; absent fields are left unchanged.
type UpdateCustomerRequest struct {
	FirstName *string  `json:"first_name"`
	LastName  *string  `json:"last_name"`
	Email     *string  `json:"email"`
	Phone     *string  `json:"phone"`
	Company   *string  `json:"company"`
	Status    *string  `json:"status"`
	Rating    *float64 `json:"rating"`
	Review    *string  `json:"review"`
}

// Patch converts the payload for the service.
func (r UpdateCustomerRequest) Patch() service.CustomerPatch {
	return service.CustomerPatch{
		FirstName:  r.FirstName,
		LastName:   r.LastName,
		Email:      r.Email,
		Phone:      r.Phone,
		Company:    r.Company,
		Status:     r.Status,
		Rating:     r.Rating,
		ReviewText: r.Review,
	}
}

// CustomerResponse is the wire form of a customer. Interactions are only present on
// single-customer reads.
type CustomerResponse struct {
	ID            int64                 `json:"id"`
	FirstName     string                `json:"first_name"`
	LastName      string                `json:"last_name"`
	Email         string                `json:"email"`
	Phone         string                `json:"phone"`
	Company       string                `json:"company"`
	Status        string                `json:"status"`
	CreatedAt     time.Time             `json:"created_at"`
	UpdatedAt     time.Time             `json:"updated_at"`
	Interactions  []InteractionResponse `json:"interactions,omitempty"`
	Rating        int                   `json:"rating"`
	AverageRating float64               `json:"average_rating"`
}

// PaginationMeta describes the returned page.
type PaginationMeta struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// CustomerListResponse is one page of customers.
type CustomerListResponse struct {
	Items      []CustomerResponse `json:"items"`
	Pagination PaginationMeta     `json:"pagination"`
}

// Customer maps a customer with its ratings.
func Customer(c domain.CustomerWithRatings) CustomerResponse {
	return CustomerResponse{
		ID:            c.Customer.ID,
		FirstName:     c.Customer.FirstName,
		LastName:      c.Customer.LastName,
		Email:         c.Customer.Email,
		Phone:         c.Customer.Phone,
		Company:       c.Customer.Company,
		Status:        c.Customer.Status,
		CreatedAt:     c.Customer.CreatedAt,
		UpdatedAt:     c.Customer.UpdatedAt,
		Rating:        c.LatestRating,
		AverageRating: c.AverageRating,
	}
}

// CustomerDetail maps a customer together with its interaction log.
func CustomerDetail(d *service.CustomerDetail) CustomerResponse {
	resp := Customer(d.CustomerWithRatings)
	resp.Interactions = Interactions(d.Interactions)
	return resp
}

// CustomerPage maps a listing page.
func CustomerPage(p *service.CustomerPage) CustomerListResponse {
	items := make([]CustomerResponse, 0, len(p.Items))
	for _, c := range p.Items {
		items = append(items, Customer(c))
	}
	return CustomerListResponse{
		Items: items,
		Pagination: PaginationMeta{
			Page:       p.Page,
			PerPage:    p.PerPage,
			Total:      p.Total,
			TotalPages: p.TotalPages,
		},
	}
}
