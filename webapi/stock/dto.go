package stock

// AddAccountRequest registers a new stock account from its platform
// credential.
type AddAccountRequest struct {
	Credential string `json:"credential" validate:"required,min=16"`
}

// SetStatusRequest toggles an account's selection eligibility.
type SetStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=active inactive"`
}
