package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/crm-service/internal/api/dto"
	"github.com/spec-kit/crm-service/internal/auth"
	"github.com/spec-kit/crm-service/internal/service"
	apperrors "github.com/spec-kit/crm-service/pkg/errorutil"
)

// ReviewsHandler exposes reviews and the current rating of a customer.
type ReviewsHandler struct {
	reviews    *service.ReviewService
	authorizer *auth.Authorizer
}

// NewReviewsHandler constructs handler.
func NewReviewsHandler(reviews *service.ReviewService, authorizer *auth.Authorizer) *ReviewsHandler {
	return &ReviewsHandler{reviews: reviews, authorizer: authorizer}
}

// List handles GET /customers/:id/reviews.
func (h *ReviewsHandler) List(c *fiber.Ctx) error {
	id, _, err := customerAccess(c, h.authorizer, auth.ResourceReviews, auth.ActionList)
	if err != nil {
		return err
	}
	reviews, err := h.reviews.List(c.UserContext(), id)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.Reviews(reviews), "")
}

// Create handles POST /customers/:id/reviews.
func (h *ReviewsHandler) Create(c *fiber.Ctx) error {
	id, _, err := customerAccess(c, h.authorizer, auth.ResourceReviews, auth.ActionCreate)
	if err != nil {
		return err
	}
	var req dto.CreateReviewRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if req.Rating == nil {
		return ratingRequired()
	}
	review, err := h.reviews.Create(c.UserContext(), id, *req.Rating, req.Review)
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, dto.Review(review), "")
}

// Update handles PUT /customers/:id/reviews/:review_id.
func (h *ReviewsHandler) Update(c *fiber.Ctx) error {
	id, _, err := customerAccess(c, h.authorizer, auth.ResourceReviews, auth.ActionUpdate)
	if err != nil {
		return err
	}
	reviewID, err := paramID(c, "review_id")
	if err != nil {
		return err
	}
	var req dto.UpdateReviewRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	review, err := h.reviews.Update(c.UserContext(), id, reviewID, service.ReviewUpdateInput{Rating: req.Rating, Text: req.Review})
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.Review(review), "")
}

// Delete handles DELETE /customers/:id/reviews/:review_id.
func (h *ReviewsHandler) Delete(c *fiber.Ctx) error {
	id, _, err := customerAccess(c, h.authorizer, auth.ResourceReviews, auth.ActionDelete)
	if err != nil {
		return err
	}
	reviewID, err := paramID(c, "review_id")
	if err != nil {
		return err
	}
	if err := h.reviews.Delete(c.UserContext(), id, reviewID); err != nil {
		return err
	}
	return respond(c, http.StatusOK, nil, "Review deleted successfully")
}

// GetRating handles GET /customers/:id/rating.
func (h *ReviewsHandler) GetRating(c *fiber.Ctx) error {
	id, _, err := customerAccess(c, h.authorizer, auth.ResourceRatings, auth.ActionRead)
	if err != nil {
		return err
	}
	summary, err := h.reviews.CurrentRating(c.UserContext(), id)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.Rating(summary), "")
}

// SetRating handles PUT /customers/:id/rating.
func (h *ReviewsHandler) SetRating(c *fiber.Ctx) error {
	id, _, err := customerAccess(c, h.authorizer, auth.ResourceRatings, auth.ActionUpdate)
	if err != nil {
		return err
	}
	var req dto.SetRatingRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if req.Rating == nil {
		return ratingRequired()
	}
	summary, err := h.reviews.SetCurrentRating(c.UserContext(), id, *req.Rating, req.Review)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.Rating(summary), "Rating updated successfully")
}

func ratingRequired() error {
	return apperrors.NewValidationError("rating is required", map[string]any{"rating": "this field is required"})
}
