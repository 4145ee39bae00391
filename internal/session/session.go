package session

// UserSession represents one logged-in user's credentials and profile
// snapshot. Fields mirror the admin API's user record; the key code is the
// original login credential, retained so the client can re-login without
// user interaction when both tokens have expired.
type UserSession struct {
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token"`
	UserID       int             `json:"user_id"`
	Username     string          `json:"username"`
	Name         string          `json:"name"`
	Mail         string          `json:"mail"`
	Roles        string          `json:"roles"`
	Credit       int             `json:"credit"`
	KeyCode      string          `json:"key_code"`
	ToolsAccess  map[string]bool `json:"tools_access"`
	Status       string          `json:"status"`
	UpdatedAt    string          `json:"updated_at"`
	UseCredit    bool            `json:"use_credit"`
}

// Valid reports whether the session is usable as-is: it must carry both an
// access token and a username.
func (s *UserSession) Valid() bool {
	return s != nil && s.AccessToken != "" && s.Username != ""
}
