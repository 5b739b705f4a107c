package mqtt

import (
	"strings"
	"time"

	"github.com/256dpi/gomqtt/packet"
)

func defaultString(main, def string) string {
	if main == "" {
		return def
	}
	return main
}

// Subscriptions builds QOS 0 subscription list, empty topics skipped.
func Subscriptions(topics []string) []packet.Subscription {
	subs := make([]packet.Subscription, 0, len(topics))
	for _, t := range topics {
		if t = strings.TrimSpace(t); t != "" {
			subs = append(subs, packet.Subscription{Topic: t, QOS: packet.QOSAtMostOnce})
		}
	}
	return subs
}

func keepaliveAndHalf(sec uint16) time.Duration {
	d := time.Duration(sec) * time.Second
	return d + d/2
}
