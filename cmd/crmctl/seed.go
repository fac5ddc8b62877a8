package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/crm-service/internal/service"
	apperrors "github.com/spec-kit/crm-service/pkg/errorutil"
)

var (
	seedCompanies = []string{
		"Tech Corp", "Digital Solutions", "Innovate Inc", "Future Systems", "Cloud Nine",
		"Data Dynamics", "Smart Solutions", "Tech Giants", "Digital Dreams", "Cyber Systems",
	}
	seedInteractionTypes = []string{"email", "call", "meeting", "video_call", "site_visit"}
	seedStatuses         = []string{"lead", "prospect", "customer", "inactive", "potential"}
)

// seed inserts sample customers. Customers whose email already exists are skipped so
// the command can be rerun.
func seed(ctx context.Context, deps service.Dependencies, logger *zap.Logger, args []string) error {
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	count := fs.Int("customers", 20, "number of customers to create")
	if err := fs.Parse(args); err != nil {
		return err
	}

	customers := service.NewCustomerService(deps)
	interactions := service.NewInteractionService(deps)
	reviews := service.NewReviewService(deps)

	created := 0
	for i := 1; i <= *count; i++ {
		detail, err := customers.Create(ctx, service.CustomerInput{
			FirstName: fmt.Sprintf("Customer%d", i),
			LastName:  fmt.Sprintf("Sample%d", i),
			Email:     fmt.Sprintf("customer%d@example.com", i),
			Phone:     fmt.Sprintf("%d-%d-%d", 100+rand.IntN(900), 100+rand.IntN(900), 1000+rand.IntN(9000)),
			Company:   pick(seedCompanies),
			Status:    pick(seedStatuses),
		})
		if apperrors.IsCode(err, apperrors.CodeConflict) {
			logger.Info("customer exists, skipping", zap.Int("index", i))
			continue
		}
		if err != nil {
			return err
		}

		customer := detail.Customer
		for j, n := 1, 2+rand.IntN(2); j <= n; j++ {
			date := time.Now().UTC().AddDate(0, 0, -rand.IntN(61))
			_, err := interactions.Create(ctx, customer.ID, service.InteractionInput{
				Type:  pick(seedInteractionTypes),
				Notes: fmt.Sprintf("Sample interaction %d for customer %s", j, customer.FirstName),
				Date:  date.Format(time.RFC3339),
			})
			if err != nil {
				return err
			}
		}

		text := fmt.Sprintf("Sample review for %s", customer.FirstName)
		if _, err := reviews.SetCurrentRating(ctx, customer.ID, float64(1+rand.IntN(5)), &text); err != nil {
			return err
		}
		created++
	}

	logger.Info("seed complete", zap.Int("customers_created", created))
	return nil
}

func pick(values []string) string {
	return values[rand.IntN(len(values))]
}
