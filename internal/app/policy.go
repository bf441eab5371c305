package app

import (
	"github.com/lberthe/scribe/internal/core"
	"github.com/lberthe/scribe/internal/domain"
)

type DeliveryAction int

const (
	DropFragment DeliveryAction = iota
	KickConnection
)

// Policy decides what happens to a recipient whose delivery failed
// (dead connection or full send buffer).
type Policy interface {
	OnDeliveryFailure(mid domain.MeetingID, conn core.ClientConn) DeliveryAction
}

// DropPolicy ignores the failure; the recipient just misses the
// fragment. This is the default.
type DropPolicy struct{}

func (DropPolicy) OnDeliveryFailure(domain.MeetingID, core.ClientConn) DeliveryAction {
	return DropFragment
}

// KickPolicy removes a failing recipient from the meeting so repeated
// backpressure does not keep burning snapshot slots.
type KickPolicy struct{}

func (KickPolicy) OnDeliveryFailure(domain.MeetingID, core.ClientConn) DeliveryAction {
	return KickConnection
}
