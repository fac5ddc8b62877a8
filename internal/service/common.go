package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/spec-kit/crm-service/internal/auth"
	"github.com/spec-kit/crm-service/internal/events"
	"github.com/spec-kit/crm-service/internal/repository"
	"github.com/spec-kit/crm-service/internal/validation"
	apperrors "github.com/spec-kit/crm-service/pkg/errorutil"
)

// Dependencies bundles what every service needs.
type Dependencies struct {
	Repos      repository.Repositories
	Dispatcher events.Dispatcher
	Validator  *validation.Validator
	Logger     *zap.Logger
}

func (d Dependencies) withDefaults() Dependencies {
	if d.Validator == nil {
		d.Validator = validation.New()
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return d
}

// publisher emits events once the surrounding transaction has committed.
type publisher struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

func (p publisher) publish(ctx context.Context, event events.Event) {
	if p.dispatcher == nil {
		return
	}
	if principal, ok := auth.PrincipalFromCtx(ctx); ok {
		event.Actor = events.Actor{UserID: principal.UserID, Role: string(principal.Role)}
	}
	if err := p.dispatcher.Publish(ctx, event); err != nil {
		p.logger.Warn("event handler failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}

// mapRepoError converts repository sentinels into domain errors. Missing rows are
// reported against resource.
func mapRepoError(err error, resource string) error {
	if err == nil {
		return nil
	}
	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	var dup *repository.DuplicateError
	if errors.As(err, &dup) {
		return apperrors.NewConflict(dup.Field+" already exists", map[string]any{"field": dup.Field})
	}
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound(resource, nil)
	}
	return apperrors.NewInternalError(err)
}
