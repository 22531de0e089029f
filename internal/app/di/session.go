package di

import (
	"github.com/aws/aws-sdk-go/aws/session"

	"github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/app/config"
	"github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/platform/awsclient"
)

// NewAWSSession creates the shared AWS session when any configured component needs AWS.
// It returns nil when every store is local.
func NewAWSSession(cfg config.Config) (*session.Session, error) {
	if !cfg.NeedsAWS() {
		return nil, nil
	}
	return awsclient.NewSession(awsclient.LoadConfig())
}
