package domain

import (
	"encoding/binary"

	"github.com/google/uuid"
)

// ID identifies appointments, availability windows and recurring rules.
// Zero means "not assigned yet".
type ID int64

// NewID returns a creation-time derived identifier: the millisecond
// timestamp and sub-millisecond sequence of a UUIDv7.
func NewID() (ID, error) {
	u, err := uuid.NewV7()
	if err != nil {
		return 0, err
	}
	return ID(binary.BigEndian.Uint64(u[:8])), nil
}

type AppointmentType string

const (
	AppointmentTypeVideoCall AppointmentType = "video-call"
	AppointmentTypePhoneCall AppointmentType = "phone-call"
	AppointmentTypeTreatment AppointmentType = "treatment"
)

type AppointmentTypeInfo struct {
	Type     AppointmentType
	Label    string
	Duration int
	Color    string
}

var appointmentTypes = []AppointmentTypeInfo{
	{Type: AppointmentTypeVideoCall, Label: "Video call", Duration: 60, Color: "#60c1be"},
	{Type: AppointmentTypePhoneCall, Label: "Phone call", Duration: 15, Color: "#ff6b6b"},
	{Type: AppointmentTypeTreatment, Label: "Treatment", Duration: 60, Color: "#b28cff"},
}

// AppointmentTypes lists the bookable appointment types in display order.
func AppointmentTypes() []AppointmentTypeInfo {
	out := make([]AppointmentTypeInfo, len(appointmentTypes))
	copy(out, appointmentTypes)
	return out
}

func LookupAppointmentType(t AppointmentType) (AppointmentTypeInfo, bool) {
	for _, info := range appointmentTypes {
		if info.Type == t {
			return info, true
		}
	}
	return AppointmentTypeInfo{}, false
}

type Appointment struct {
	ID       ID              `json:"id"`
	Type     AppointmentType `json:"type"`
	Date     Date            `json:"date"`
	Time     Clock           `json:"time"`
	Duration *int            `json:"duration,omitempty"`
}

// Minutes is the booked duration, falling back to the type's canonical
// duration and then to zero for unknown types.
func (a Appointment) Minutes() int {
	if a.Duration != nil {
		return *a.Duration
	}
	if info, ok := LookupAppointmentType(a.Type); ok {
		return info.Duration
	}
	return 0
}

// End is the exclusive end of the appointment. It may exceed MinutesPerDay
// for records that were never validated.
func (a Appointment) End() Clock {
	return a.Time.Add(a.Minutes())
}

type AppointmentInput struct {
	ID       ID
	Type     AppointmentType
	Date     Date
	Time     Clock
	Duration *int
}

// NewAppointment builds a complete appointment record. It assigns a fresh
// ID when none is given and pins the duration so later catalogue changes do
// not move existing bookings.
func NewAppointment(in AppointmentInput) (Appointment, error) {
	info, ok := LookupAppointmentType(in.Type)
	if !ok {
		return Appointment{}, ErrUnknownType
	}
	if in.Date.IsZero() {
		return Appointment{}, errInvalidDate
	}
	if in.Time < 0 || in.Time >= MinutesPerDay {
		return Appointment{}, errInvalidClock
	}

	duration := info.Duration
	if in.Duration != nil {
		duration = *in.Duration
	}
	if duration <= 0 {
		return Appointment{}, ErrInvalidTimeRange
	}

	id, err := assignID(in.ID)
	if err != nil {
		return Appointment{}, err
	}

	return Appointment{
		ID:       id,
		Type:     in.Type,
		Date:     in.Date,
		Time:     in.Time,
		Duration: &duration,
	}, nil
}

// Candidate returns the validation candidate describing a.
func (a Appointment) Candidate() Candidate {
	return Candidate{Date: a.Date, Start: a.Time, Duration: a.Minutes()}
}
