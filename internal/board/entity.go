package board

import "time"

// Board scopes tasks and agents and carries the policy toggles plus the
// OpenClaw gateway connection settings for its agents.
type Board struct {
	ID                      string    `yaml:"id" json:"id"`
	Name                    string    `yaml:"name" json:"name"`
	Slug                    string    `yaml:"slug" json:"slug"`
	OnlyLeadCanChangeStatus bool      `yaml:"only_lead_can_change_status" json:"only_lead_can_change_status"`
	GatewayURL              string    `yaml:"gateway_url,omitempty" json:"gateway_url,omitempty"`
	GatewayToken            string    `yaml:"gateway_token,omitempty" json:"-"`
	GatewayMainSessionKey   string    `yaml:"gateway_main_session_key,omitempty" json:"gateway_main_session_key,omitempty"`
	CreatedAt               time.Time `yaml:"created_at" json:"created_at"`
	UpdatedAt               time.Time `yaml:"updated_at" json:"updated_at"`
}
