package converter

import (
	"clinic-backend/internal/delivery/dto"
	"clinic-backend/internal/domain/entity"

	"github.com/google/uuid"
)

func CountBucketToResponse(timeSlotIDs []uuid.UUID, counts entity.CountBucket) *dto.RealTimeCountsResponse {
	if timeSlotIDs == nil {
		timeSlotIDs = []uuid.UUID{}
	}

	return &dto.RealTimeCountsResponse{
		TimeSlotIDs:                      timeSlotIDs,
		WaitForConsultationCount:         counts.WaitForConsultationCount,
		WaitForBedAssignedCount:          counts.WaitForBedAssignedCount,
		WaitForAcupunctureTreatmentCount: counts.WaitForAcupunctureTreatmentCount,
		WaitForNeedleRemovedCount:        counts.WaitForNeedleRemovedCount,
		WaitForMedicineCount:             counts.WaitForMedicineCount,
		CompletedCount:                   counts.CompletedCount,
		OnsiteCancelCount:                counts.OnsiteCancelCount,
		CompletionRate:                   counts.CompletionRate(),
		CancellationRate:                 counts.CancellationRate(),
	}
}

func RealTimeRowsToResponses(rows []entity.RealTimeRow) []dto.RealTimeRowResponse {
	responses := make([]dto.RealTimeRowResponse, len(rows))
	for i, row := range rows {
		responses[i] = dto.RealTimeRowResponse{
			ConsultationID:     row.ConsultationID,
			ConsultationNumber: row.ConsultationNumber,
			TimeSlotID:         row.TimeSlotID,
			PatientID:          row.PatientID,
			PatientName:        row.PatientName,
			Status:             string(row.Status),
			CheckInAt:          row.CheckInAt,
			IsFirstTimeVisit:   row.IsFirstTimeVisit,
			BedID:              row.BedID,
		}
	}
	return responses
}
