package redisrepo

import (
	"fmt"

	"github.com/kirinyoku/resortbook/internal/domain"
)

const ns = "resortbook:v1"

func KeyAvailability(key domain.DateKey) string {
	return fmt.Sprintf("%s:availability:%s", ns, key)
}

func KeyRateLimit(scope, id string) string {
	return fmt.Sprintf("%s:rl:%s:%s", ns, scope, id)
}

func KeyEventClaim(consumer, eventID string) string {
	return fmt.Sprintf("%s:claims:%s:%s", ns, consumer, eventID)
}

func ChannelBookingEvents() string {
	return ns + ":bookings:events"
}
