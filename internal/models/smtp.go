package models

// SMTPConfig holds the outgoing mail server settings.
type SMTPConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"-"`
	From     string `json:"from"`
	FromName string `json:"from_name"`
}

// Configured reports whether enough fields are set to attempt delivery.
func (c *SMTPConfig) Configured() bool {
	return c != nil && c.Host != "" && c.Port > 0 && c.From != ""
}
