package converter

import (
	"fmt"

	"clinic-backend/internal/delivery/dto"
	"clinic-backend/internal/domain/entity"
)

func AuditLogToResponse(log *entity.AuditLog) *dto.AuditLogResponse {
	if log == nil {
		return nil
	}

	return &dto.AuditLogResponse{
		ID:        log.ID,
		Actor:     UserToResponse(log.User),
		Action:    log.Action,
		OldStatus: metadataStatus(log.Metadata, "old_value"),
		NewStatus: metadataStatus(log.Metadata, "new_value"),
		Metadata:  log.Metadata,
		CreatedAt: log.CreatedAt,
	}
}

func AuditLogsToResponses(logs []entity.AuditLog) []dto.AuditLogResponse {
	responses := make([]dto.AuditLogResponse, len(logs))
	for i := range logs {
		responses[i] = *AuditLogToResponse(&logs[i])
	}
	return responses
}

// metadataStatus reads metadata[side].status, which is a nested JSON when
// built in memory and a plain map once read back from jsonb
func metadataStatus(metadata entity.JSON, side string) string {
	var status any
	switch v := metadata[side].(type) {
	case entity.JSON:
		status = v["status"]
	case map[string]any:
		status = v["status"]
	default:
		return ""
	}
	if status == nil {
		return ""
	}
	return fmt.Sprint(status)
}
