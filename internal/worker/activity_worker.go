package worker

import (
	"github.com/spec-kit/crm-service/internal/service"
)

// StartActivityWorker registers the audit log handlers.
func StartActivityWorker(activityService *service.ActivityService) {
	if activityService == nil {
		return
	}
	activityService.RegisterHandlers()
}
