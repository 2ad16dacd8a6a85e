package domain

import "strings"

type SecurityLevel string

const (
	SecurityLow  SecurityLevel = "LOW"
	SecurityMid  SecurityLevel = "MID"
	SecurityHigh SecurityLevel = "HIGH"
)

// ParseSecurityLevel acepta LOW, MID o HIGH sin distinguir mayúsculas.
func ParseSecurityLevel(raw string) (SecurityLevel, bool) {
	switch SecurityLevel(strings.ToUpper(strings.TrimSpace(raw))) {
	case SecurityLow:
		return SecurityLow, true
	case SecurityMid:
		return SecurityMid, true
	case SecurityHigh:
		return SecurityHigh, true
	default:
		return "", false
	}
}

// Visible devuelve los niveles de documento que un usuario con este nivel puede leer.
// Cualquier valor desconocido se trata como LOW.
func (l SecurityLevel) Visible() []SecurityLevel {
	switch l {
	case SecurityHigh:
		return []SecurityLevel{SecurityHigh, SecurityMid, SecurityLow}
	case SecurityMid:
		return []SecurityLevel{SecurityMid, SecurityLow}
	default:
		return []SecurityLevel{SecurityLow}
	}
}

type UserPreference struct {
	UserID              string        `json:"user_id"`
	AboutUserMessage    string        `json:"about_user_message"`
	AboutModelMessage   string        `json:"about_model_message"`
	AboutMessageEnabled bool          `json:"about_message_enabled"`
	SecurityLevel       SecurityLevel `json:"security_level"`
}
