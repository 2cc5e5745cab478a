package device

type AddRequest struct {
	Code        string `json:"code" binding:"required"`
	Name        string `json:"name" binding:"required"`
	Model       string `json:"model"`
	Brand       string `json:"brand"`
	Location    string `json:"location" binding:"required"`
	Description string `json:"description"`
}

type UpdateRequest struct {
	Name        string `json:"name"`
	Model       string `json:"model"`
	Brand       string `json:"brand"`
	Location    string `json:"location"`
	Description string `json:"description"`
}

type RecordUsageRequest struct {
	Hours float64 `json:"hours" binding:"required"`
}
