package identity

import (
	"context"

	"github.com/kyfplatform/kyf-api/pkg/kernel"
)

// Store is the narrow read interface the gate has into the user store,
// plus the two writes the gate owns: channel verification after a
// successful OTP and the single refresh-token slot per user.
type Store interface {
	FindByID(ctx context.Context, id kernel.UserID) (*Record, error)
	FindByChannel(ctx context.Context, channel kernel.Channel) (*Record, error)
	FindAdminByID(ctx context.Context, id kernel.UserID) (*AdminRecord, error)
	MarkChannelVerified(ctx context.Context, channel kernel.Channel) error
	SaveRefreshToken(ctx context.Context, id kernel.UserID, token string) error
}
