package handlers

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/crm-service/internal/api/dto"
	"github.com/spec-kit/crm-service/internal/auth"
	"github.com/spec-kit/crm-service/internal/export"
	"github.com/spec-kit/crm-service/internal/service"
)

// CustomersHandler exposes customer CRUD, search and export.
type CustomersHandler struct {
	customers  *service.CustomerService
	authorizer *auth.Authorizer
	logger     *zap.Logger
}

// NewCustomersHandler constructs handler.
func NewCustomersHandler(customers *service.CustomerService, authorizer *auth.Authorizer, logger *zap.Logger) *CustomersHandler {
	return &CustomersHandler{customers: customers, authorizer: authorizer, logger: logger}
}

// List handles GET /customers and GET /customers/search. Customer users only see the
// customer linked to their account.
func (h *CustomersHandler) List(c *fiber.Ctx) error {
	principal, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	params := listParams(c)
	scope, ok := h.authorizer.CustomerScope(principal, auth.ResourceCustomers, auth.ActionList)
	if !ok {
		// No linked customer: scope to an id that never exists so paging stays uniform.
		none := int64(0)
		scope = &none
	}
	params.CustomerID = scope

	page, err := h.customers.List(c.UserContext(), params)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.CustomerPage(page), "")
}

// Create handles POST /customers.
func (h *CustomersHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateCustomerRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	customer, err := h.customers.Create(c.UserContext(), req.Input())
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, dto.CustomerDetail(customer), "Customer created successfully")
}

// Get handles GET /customers/:id.
func (h *CustomersHandler) Get(c *fiber.Ctx) error {
	id, _, err := customerAccess(c, h.authorizer, auth.ResourceCustomers, auth.ActionRead)
	if err != nil {
		return err
	}
	customer, err := h.customers.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.CustomerDetail(customer), "")
}

// Update handles PUT /customers/:id.
func (h *CustomersHandler) Update(c *fiber.Ctx) error {
	id, _, err := customerAccess(c, h.authorizer, auth.ResourceCustomers, auth.ActionUpdate)
	if err != nil {
		return err
	}
	var req dto.UpdateCustomerRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	customer, err := h.customers.Update(c.UserContext(), id, req.Patch())
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.CustomerDetail(customer), "Customer updated successfully")
}

// Delete handles DELETE /customers/:id.
func (h *CustomersHandler) Delete(c *fiber.Ctx) error {
	id, _, err := customerAccess(c, h.authorizer, auth.ResourceCustomers, auth.ActionDelete)
	if err != nil {
		return err
	}
	if err := h.customers.Delete(c.UserContext(), id); err != nil {
		return err
	}
	return respond(c, http.StatusOK, nil, "Customer deleted successfully")
}

// Export handles GET /customers/export and streams an xlsx workbook.
func (h *CustomersHandler) Export(c *fiber.Ctx) error {
	items, err := h.customers.Export(c.UserContext(), listParams(c))
	if err != nil {
		return err
	}
	workbook, err := export.CustomerWorkbook(items)
	if err != nil {
		return err
	}
	defer func() {
		if err := workbook.Close(); err != nil {
			h.logger.Warn("close export workbook", zap.Error(err))
		}
	}()

	c.Set(fiber.HeaderContentType, export.ContentTypeXLSX)
	c.Attachment(export.CustomerFilename(time.Now()))
	return workbook.Write(c)
}

func listParams(c *fiber.Ctx) service.CustomerListParams {
	return service.CustomerListParams{
		Search:    c.Query("q"),
		Status:    c.Query("status"),
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
		Page:      c.QueryInt("page", service.DefaultPage),
		PerPage:   c.QueryInt("per_page", service.DefaultPerPage),
	}
}
