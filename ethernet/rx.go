package ethernet

import "github.com/soypat/lnetstack/wire"

// Listener receives demultiplexed Ethernet payloads matching its EtherType.
type Listener interface {
	EtherType() Type
	// HandleFrame is invoked with the source/destination hardware addresses
	// and the frame's payload (header stripped). Errors are logged by Rx's
	// caller and do not stop dispatch to other listeners.
	HandleFrame(src, dst [6]byte, payload []byte) error
}

// Rx demultiplexes received Ethernet frames to registered Listeners.
// Dispatch happens in registration order: callers that need ARP resolved
// before IPv4 is handled should call Register for the ARP listener first.
type Rx struct {
	listeners []Listener
}

// Register adds l to the dispatch list.
func (rx *Rx) Register(l Listener) {
	rx.listeners = append(rx.listeners, l)
}

// Dispatch parses frame and invokes every Listener whose EtherType matches.
// Malformed frames and EtherTypes with no registered listener are dropped
// silently, per spec. Returns the first listener error encountered, if any,
// after every matching listener has run.
func (rx *Rx) Dispatch(frame []byte) error {
	f, err := NewFrame(frame)
	if err != nil {
		return nil // too short to be a real frame; silent drop.
	}
	var vld wire.Validator
	f.ValidateSize(&vld)
	if vld.HasError() {
		return nil
	}
	et := f.EtherTypeOrSize()
	if et.IsSize() {
		return nil // 802.3 length field, not an EtherType we demux on.
	}
	src := *f.SourceHardwareAddr()
	dst := *f.DestinationHardwareAddr()
	payload := f.Payload()
	var firstErr error
	for _, l := range rx.listeners {
		if l.EtherType() != et {
			continue
		}
		if err := l.HandleFrame(src, dst, payload); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
