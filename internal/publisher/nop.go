package publisher

import (
	"context"

	"github.com/google/uuid"
)

// NopSender accepts every frame without delivering it anywhere. Used when
// no broker is configured so the preview pipeline still runs end to end.
type NopSender struct{}

func (NopSender) Send(context.Context, uuid.UUID, []byte) error { return nil }
