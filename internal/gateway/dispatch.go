package gateway

import (
	"github.com/farhad-a/openclaw-mission-control/internal/board"
	"github.com/farhad-a/openclaw-mission-control/pkg/cerr"
)

// DispatchService resolves a board's gateway connection settings.
type DispatchService struct{}

func NewDispatchService() *DispatchService {
	return &DispatchService{}
}

// OptionalConfigForBoard returns the board's gateway config, or nil when the
// board has no gateway configured. A nil config means notifications for the
// board's agents are silently skipped.
func (d *DispatchService) OptionalConfigForBoard(b *board.Board) *Config {
	if b == nil || b.GatewayURL == "" {
		return nil
	}
	return &Config{URL: b.GatewayURL, Token: b.GatewayToken}
}

// RequireConfigForBoard is the strict variant used by the gateway admin
// endpoints, where an unconfigured board is a caller error.
func (d *DispatchService) RequireConfigForBoard(b *board.Board) (*Config, error) {
	if b.GatewayURL == "" {
		return nil, cerr.NewError(cerr.Unprocessable, "Board gateway_url is required", nil)
	}
	if b.GatewayMainSessionKey == "" {
		return nil, cerr.NewError(cerr.Unprocessable, "Board gateway_main_session_key is required", nil)
	}
	return &Config{URL: b.GatewayURL, Token: b.GatewayToken}, nil
}
