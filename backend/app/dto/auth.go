package dto

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
}

type EnrollRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
	Platform    string `json:"platform"`
	Hostname    string `json:"hostname"`
}

type EnrollResponse struct {
	DeviceID string `json:"device_id"`
	Token    string `json:"token"`
}
