package entity

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition is returned when an event is not allowed from the current status
var ErrInvalidTransition = errors.New("invalid consultation status transition")

// ConsultationStatus represents the stage a consultation is currently in
type ConsultationStatus string

const (
	StatusWaitingForConsultation         ConsultationStatus = "WAITING_FOR_CONSULTATION"
	StatusInConsultation                 ConsultationStatus = "IN_CONSULTATION"
	StatusWaitingForBedAssignment        ConsultationStatus = "WAITING_FOR_BED_ASSIGNMENT"
	StatusWaitingForAcupunctureTreatment ConsultationStatus = "WAITING_FOR_ACUPUNCTURE_TREATMENT"
	StatusUndergoingAcupunctureTreatment ConsultationStatus = "UNDERGOING_ACUPUNCTURE_TREATMENT"
	StatusWaitingForNeedleRemoval        ConsultationStatus = "WAITING_FOR_NEEDLE_REMOVAL"
	StatusWaitingForGetMedicine          ConsultationStatus = "WAITING_FOR_GET_MEDICINE"
	StatusCheckOut                       ConsultationStatus = "CHECK_OUT"
	StatusOnsiteCancel                   ConsultationStatus = "ONSITE_CANCEL"
)

// AllConsultationStatuses lists every status in normal-flow order
var AllConsultationStatuses = []ConsultationStatus{
	StatusWaitingForConsultation,
	StatusInConsultation,
	StatusWaitingForBedAssignment,
	StatusWaitingForAcupunctureTreatment,
	StatusUndergoingAcupunctureTreatment,
	StatusWaitingForNeedleRemoval,
	StatusWaitingForGetMedicine,
	StatusCheckOut,
	StatusOnsiteCancel,
}

// IsValid reports whether s is one of the fixed enumeration values
func (s ConsultationStatus) IsValid() bool {
	for _, status := range AllConsultationStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition (other than idempotent re-checkout) is possible
func (s ConsultationStatus) IsTerminal() bool {
	return s == StatusCheckOut || s == StatusOnsiteCancel
}

// ConsultationEvent is an input to the consultation state machine
type ConsultationEvent string

const (
	EventStartConsultation   ConsultationEvent = "start_consultation"
	EventRouteToAcupuncture  ConsultationEvent = "route_to_acupuncture"
	EventRouteToMedicine     ConsultationEvent = "route_to_medicine"
	EventFinishConsultation  ConsultationEvent = "finish_consultation"
	EventAssignBed           ConsultationEvent = "assign_bed"
	EventStartAcupuncture    ConsultationEvent = "start_acupuncture"
	EventAcupunctureFinished ConsultationEvent = "acupuncture_finished"
	EventRemoveNeedle        ConsultationEvent = "remove_needle"
	EventDispenseMedicine    ConsultationEvent = "dispense_medicine"
	EventCheckOut            ConsultationEvent = "check_out"
	EventOnsiteCancel        ConsultationEvent = "onsite_cancel"
)

// TransitionContext carries the aggregate facts some transitions branch on
type TransitionContext struct {
	HasAcupuncture bool
	HasMedicine    bool
}

// NextStatus is the single source of truth for the consultation state machine.
// It returns the status that event moves current into, or ErrInvalidTransition.
func NextStatus(current ConsultationStatus, event ConsultationEvent, tc TransitionContext) (ConsultationStatus, error) {
	if !current.IsValid() {
		return "", fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, current)
	}

	switch event {
	case EventStartConsultation:
		if current == StatusWaitingForConsultation {
			return StatusInConsultation, nil
		}

	case EventRouteToAcupuncture:
		if current == StatusInConsultation {
			return StatusWaitingForBedAssignment, nil
		}

	case EventRouteToMedicine:
		// medicine is dispensed later, status stays where it is
		switch current {
		case StatusInConsultation,
			StatusWaitingForBedAssignment,
			StatusWaitingForAcupunctureTreatment,
			StatusUndergoingAcupunctureTreatment,
			StatusWaitingForNeedleRemoval:
			return current, nil
		}

	case EventFinishConsultation:
		if current == StatusInConsultation {
			if tc.HasMedicine {
				return StatusWaitingForGetMedicine, nil
			}
			return StatusCheckOut, nil
		}

	case EventAssignBed:
		if tc.HasAcupuncture && current == StatusWaitingForBedAssignment {
			return StatusWaitingForAcupunctureTreatment, nil
		}

	case EventStartAcupuncture:
		if tc.HasAcupuncture && current == StatusWaitingForAcupunctureTreatment {
			return StatusUndergoingAcupunctureTreatment, nil
		}

	case EventAcupunctureFinished:
		if current == StatusUndergoingAcupunctureTreatment {
			return StatusWaitingForNeedleRemoval, nil
		}

	case EventRemoveNeedle:
		if tc.HasAcupuncture && (current == StatusWaitingForNeedleRemoval || current == StatusUndergoingAcupunctureTreatment) {
			if tc.HasMedicine {
				return StatusWaitingForGetMedicine, nil
			}
			return StatusCheckOut, nil
		}

	case EventDispenseMedicine:
		if tc.HasMedicine && current == StatusWaitingForGetMedicine {
			return StatusCheckOut, nil
		}

	case EventCheckOut:
		if current == StatusCheckOut || !current.IsTerminal() {
			return StatusCheckOut, nil
		}

	case EventOnsiteCancel:
		if !current.IsTerminal() {
			return StatusOnsiteCancel, nil
		}
	}

	return "", fmt.Errorf("%w: %s from %s", ErrInvalidTransition, event, current)
}
