package reservation

import "time"

type CreateRequest struct {
	DeviceID  int64     `json:"device_id" binding:"required"`
	StartTime time.Time `json:"start_time" binding:"required"`
	EndTime   time.Time `json:"end_time" binding:"required"`
	Purpose   string    `json:"purpose"`
	Notes     string    `json:"notes"`
}

type ReviewRequest struct {
	Approve *bool  `json:"approve" binding:"required"`
	Note    string `json:"note"`
}

type BatchReviewRequest struct {
	IDs     []int64 `json:"ids" binding:"required"`
	Approve *bool   `json:"approve" binding:"required"`
	Note    string  `json:"note"`
}

type CancelRequest struct {
	Note string `json:"note"`
}

type ExtendRequest struct {
	NewEndTime time.Time `json:"new_end_time" binding:"required"`
	Reason     string    `json:"reason" binding:"required"`
}
