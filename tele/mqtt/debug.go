package mqtt

import (
	"fmt"

	"github.com/256dpi/gomqtt/packet"
)

const debugPayloadMax = 64

// PacketString is packet.String() with short quoted PUBLISH payload.
func PacketString(p packet.Generic) string {
	if p == nil {
		return "(nil)"
	}
	if pub, ok := p.(*packet.Publish); ok {
		return fmt.Sprintf("<Publish ID=%d Dup=%t %s>", pub.ID, pub.Dup, MessageString(&pub.Message))
	}
	return p.String()
}

func MessageString(m *packet.Message) string {
	if m == nil {
		return "message=nil"
	}
	payload, suffix := m.Payload, ""
	if len(payload) > debugPayloadMax {
		payload, suffix = payload[:debugPayloadMax], "..."
	}
	return fmt.Sprintf("Topic=%q QOS=%d Retain=%t Payload=%q%s", m.Topic, m.QOS, m.Retain, payload, suffix)
}
