package api

// SessionResponse from the authenticate and refresh endpoints.
type SessionResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token"`
	Created      bool   `json:"created,omitempty"`
}

// DeviceAuthRequest is the body of POST /v2/account/authenticate/device.
type DeviceAuthRequest struct {
	ID   string            `json:"id"`
	Vars map[string]string `json:"vars,omitempty"`
}

// SessionRefreshRequest is the body of POST /v2/account/session/refresh.
type SessionRefreshRequest struct {
	Token string            `json:"token"`
	Vars  map[string]string `json:"vars,omitempty"`
}

// SessionLogoutRequest is the body of POST /v2/session/logout.
type SessionLogoutRequest struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token,omitempty"`
}
