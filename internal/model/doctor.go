package model

import (
	"time"

	"github.com/google/uuid"
)

type DoctorProfile struct {
	ID            uuid.UUID `db:"id" json:"id"`
	UserID        uuid.UUID `db:"user_id" json:"user_id"`
	Profession    string    `db:"profession" json:"profession"`
	ClinicAddress string    `db:"clinic_address" json:"clinic_address"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// AvailabilityBlock is one weekly time block.
type AvailabilityBlock struct {
	DayOfWeek string `db:"day_of_week" json:"day_of_week"`
	StartTime string `db:"start_time" json:"start_time"`
	EndTime   string `db:"end_time" json:"end_time"`
}

// Complete reports whether every field of the block is set.
func (b AvailabilityBlock) Complete() bool {
	return b.DayOfWeek != "" && b.StartTime != "" && b.EndTime != ""
}

type UpdateProfileRequest struct {
	Profession    string `json:"profession" binding:"required,notblank"`
	ClinicAddress string `json:"clinicAddress" binding:"required,notblank"`
}

type AvailabilityInput struct {
	DayOfWeek string `json:"dayOfWeek"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

type SetAvailabilityRequest struct {
	Availability []AvailabilityInput `json:"availability" binding:"required"`
}

func (r *SetAvailabilityRequest) Blocks() []AvailabilityBlock {
	blocks := make([]AvailabilityBlock, 0, len(r.Availability))
	for _, in := range r.Availability {
		blocks = append(blocks, AvailabilityBlock{
			DayOfWeek: in.DayOfWeek,
			StartTime: in.StartTime,
			EndTime:   in.EndTime,
		})
	}
	return blocks
}

// ProfileView is the doctor's own profile page payload.
type ProfileView struct {
	User    *Identity          `json:"user"`
	Profile *ProfileWithBlocks `json:"profile"`
}

type ProfileWithBlocks struct {
	*DoctorProfile
	Availability []AvailabilityBlock `json:"availability"`
}
