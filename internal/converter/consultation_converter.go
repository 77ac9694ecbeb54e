package converter

import (
	"clinic-backend/internal/delivery/dto"
	"clinic-backend/internal/domain/entity"
)

// ConsultationToResponse converts a Consultation entity to ConsultationResponse DTO
func ConsultationToResponse(consultation *entity.Consultation) *dto.ConsultationResponse {
	if consultation == nil {
		return nil
	}

	response := &dto.ConsultationResponse{
		ID:                 consultation.ID,
		PatientID:          consultation.PatientID,
		TimeSlotID:         consultation.TimeSlotID,
		Source:             string(consultation.Source),
		ConsultationNumber: consultation.ConsultationNumber,
		CheckInAt:          consultation.CheckInAt,
		IsFirstTimeVisit:   consultation.IsFirstTimeVisit,
		Status:             string(consultation.Status),
		StartAt:            consultation.StartAt,
		EndAt:              consultation.EndAt,
		CheckOutAt:         consultation.CheckOutAt,
		OnsiteCancelAt:     consultation.OnsiteCancelAt,
		OnsiteCancelReason: consultation.OnsiteCancelReason,
		CreatedAt:          consultation.CreatedAt,
		UpdatedAt:          consultation.UpdatedAt,
	}

	// Include patient name if preloaded
	if consultation.Patient.ID == consultation.PatientID {
		response.PatientName = consultation.Patient.FullName
	}

	if t := consultation.AcupunctureTreatment; t != nil {
		response.AcupunctureTreatment = &dto.AcupunctureTreatmentResponse{
			ID:             t.ID,
			BedID:          t.BedID,
			AssignBedAt:    t.AssignBedAt,
			StartAt:        t.StartAt,
			EndAt:          t.EndAt,
			NeedleCounts:   t.NeedleCounts,
			RemoveNeedleAt: t.RemoveNeedleAt,
		}
	}

	if t := consultation.MedicineTreatment; t != nil {
		response.MedicineTreatment = &dto.MedicineTreatmentResponse{
			ID:            t.ID,
			GetMedicineAt: t.GetMedicineAt,
		}
	}

	return response
}
