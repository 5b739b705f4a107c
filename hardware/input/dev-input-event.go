package input

import (
	"fmt"
	"os"
	"time"
	"unsafe"

	"github.com/juju/errors"
	"github.com/temoto/inputevent-go"
	"golang.org/x/sys/unix"
)

const DevInputEventTag = "dev-input-event"

// linux/input-event-codes.h
const (
	evKey  = 0x01
	evSw   = 0x05
	keyMax = 0x2ff

	iocRead      = 2
	eviocgkeyNr  = 0x18
	eviocgswNr   = 0x1b
	stateBufSize = keyMax/8 + 1
)

// DevInputEventSource is key or switch of evdev device, e.g. gpio-keys.
// Key down or switch closed means on.
type DevInputEventSource struct {
	f    *os.File
	code uint16
	sw   bool
	name string
}

var _ Switch = &DevInputEventSource{}

func NewDevInputEventSource(device string, code uint16, sw bool) (*DevInputEventSource, error) {
	f, err := os.Open(device)
	if err != nil {
		return nil, errors.Annotatef(err, "%s device=%s", DevInputEventTag, device)
	}
	return &DevInputEventSource{f: f, code: code, sw: sw, name: device}, nil
}

func (self *DevInputEventSource) String() string {
	return fmt.Sprintf("%s:%s:%d", DevInputEventTag, self.name, self.code)
}

func (self *DevInputEventSource) Close() error { return self.f.Close() }

// State asks kernel for current key/switch bitmap (EVIOCGKEY/EVIOCGSW).
func (self *DevInputEventSource) State() (bool, error) {
	var buf [stateBufSize]byte
	nr := uintptr(eviocgkeyNr)
	if self.sw {
		nr = eviocgswNr
	}
	req := iocRead<<30 | uintptr(len(buf))<<16 | uintptr('E')<<8 | nr
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, self.f.Fd(), req, uintptr(unsafe.Pointer(&buf[0])))
	if errno != 0 {
		return false, errors.Annotatef(errno, "%s ioctl", DevInputEventTag)
	}
	return bitSet(buf[:], self.code), nil
}

// Next skips unrelated events. Timeout works when device supports poll.
func (self *DevInputEventSource) Next(timeout time.Duration) (bool, error) {
	if timeout > 0 {
		_ = self.f.SetReadDeadline(time.Now().Add(timeout))
	}
	for {
		ie, err := inputevent.ReadOne(self.f)
		if os.IsTimeout(err) {
			return false, errors.Timeoutf("%s read", DevInputEventTag)
		}
		if err != nil {
			return false, err
		}
		if on, ok := self.match(ie); ok {
			return on, nil
		}
	}
}

func (self *DevInputEventSource) match(ie inputevent.InputEvent) (on bool, ok bool) {
	typ := uint16(evKey)
	if self.sw {
		typ = evSw
	}
	if ie.Type != typ || ie.Code != self.code {
		return false, false
	}
	switch inputevent.KeyEventState(ie.Value) {
	case inputevent.KeyStateDown:
		return true, true
	case inputevent.KeyStateUp:
		return false, true
	}
	return false, false // autorepeat
}

func bitSet(bitmap []byte, n uint16) bool {
	i := int(n / 8)
	if i >= len(bitmap) {
		return false
	}
	return bitmap[i]&(1<<(n%8)) != 0
}
