package dto

type ErrorResponse struct {
	Error string `json:"error"`
}

type VoidLegResponse struct {
	LegID  string `json:"legId"`
	Status string `json:"status"` // PROCESSED
}
