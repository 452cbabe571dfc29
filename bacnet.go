package bacnet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sort"
	"sync"
	"time"
)

const (
	DefaultTimeout       = 3 * time.Second
	DefaultRetries       = 1
	DefaultResolveWindow = 3 * time.Second

	collectorBuffer = 1024
)

type BVLCHeader struct {
	Type     byte
	Function byte
	Length   uint16
}

type NPDU struct {
	Version byte
	Control byte
}

// Address locates a device: its BACnet/IP endpoint and, for devices behind a
// router, the remote network number and MAC address.
type Address struct {
	UDP *net.UDPAddr
	Net uint16
	Mac []byte
}

func (a Address) String() string {
	if a.UDP == nil {
		return "<nil>"
	}
	if a.Net == 0 {
		return a.UDP.String()
	}
	return fmt.Sprintf("%d:%x@%s", a.Net, a.Mac, a.UDP)
}

// DeviceInfo is what a device announces about itself in I-Am.
type DeviceInfo struct {
	DeviceID     uint32
	Address      Address
	MaxAPDU      uint32
	Segmentation uint32
	VendorID     uint32
}

// SegmentationName returns the BACnet name of the segmentation support value.
func (d DeviceInfo) SegmentationName() string {
	return lookupName(SegmentationNames, d.Segmentation, uint64(d.Segmentation))
}

type Direction uint8

const (
	Outbound Direction = iota
	Inbound
)

func (d Direction) String() string {
	if d == Inbound {
		return "in"
	}
	return "out"
}

// TapFunc observes every datagram the client sends or receives. It runs on the
// sending goroutine or the receive loop and must not block.
type TapFunc func(dir Direction, local, remote *net.UDPAddr, payload []byte)

type ClientOptions struct {
	LocalAddr     *net.UDPAddr
	BroadcastAddr *net.UDPAddr
	// Timeout bounds each attempt of a confirmed request.
	Timeout time.Duration
	// Retries is the number of resends after the first attempt times out.
	Retries       int
	ResolveWindow time.Duration
	// Devices maps device instances to fixed addresses, bypassing Who-Is.
	Devices map[uint32]*net.UDPAddr
	Logger  *slog.Logger
	Tap     TapFunc
}

type transaction struct {
	invokeID byte
	peer     Address
	service  byte
	reply    chan apdu
}

type collector struct {
	low, high uint32
	ch        chan DeviceInfo
}

// Client owns the BACnet/IP socket. Confirmed requests from any number of
// goroutines are multiplexed over it by invoke id.
type Client struct {
	conn    *net.UDPConn
	options ClientOptions
	log     *slog.Logger

	mu         sync.Mutex
	lastID     byte
	pending    map[byte]*transaction
	collectors map[*collector]struct{}
	closed     bool

	devicesMu sync.RWMutex
	devices   map[uint32]DeviceInfo

	done chan struct{}
	wg   sync.WaitGroup
}

func NewClient(options ClientOptions) (*Client, error) {
	if options.LocalAddr == nil {
		options.LocalAddr = &net.UDPAddr{Port: BACNET_DEFAULT_PORT}
	}
	if options.BroadcastAddr == nil {
		port := options.LocalAddr.Port
		if port == 0 {
			port = BACNET_DEFAULT_PORT
		}
		options.BroadcastAddr = &net.UDPAddr{IP: net.IPv4bcast, Port: port}
	}
	if options.Timeout <= 0 {
		options.Timeout = DefaultTimeout
	}
	if options.Retries < 0 {
		options.Retries = 0
	}
	if options.ResolveWindow <= 0 {
		options.ResolveWindow = DefaultResolveWindow
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := net.ListenUDP("udp4", options.LocalAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", options.LocalAddr, err)
	}

	c := &Client{
		conn:       conn,
		options:    options,
		log:        logger.With(slog.String("component", "bacnet")),
		pending:    make(map[byte]*transaction),
		collectors: make(map[*collector]struct{}),
		devices:    make(map[uint32]DeviceInfo),
		done:       make(chan struct{}),
	}

	c.wg.Add(1)
	go c.receive()

	c.log.Info("bacnet client listening",
		slog.String("local", conn.LocalAddr().String()),
		slog.String("broadcast", options.BroadcastAddr.String()))
	return c, nil
}

// Close stops the receive loop. Outstanding requests fail with ErrClientClosed.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	clear(c.pending)
	clear(c.collectors)
	c.mu.Unlock()

	close(c.done)
	err := c.conn.Close()
	c.wg.Wait()
	return err
}

func (c *Client) LocalAddr() *net.UDPAddr {
	return c.conn.LocalAddr().(*net.UDPAddr)
}

func (c *Client) BroadcastAddr() *net.UDPAddr {
	return c.options.BroadcastAddr
}

// Pending reports the number of outstanding confirmed requests.
func (c *Client) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Device returns the cached I-Am of a device.
func (c *Client) Device(instance uint32) (DeviceInfo, bool) {
	c.devicesMu.RLock()
	defer c.devicesMu.RUnlock()
	d, ok := c.devices[instance]
	return d, ok
}

// Devices returns every cached device ordered by instance.
func (c *Client) Devices() []DeviceInfo {
	c.devicesMu.RLock()
	out := make([]DeviceInfo, 0, len(c.devices))
	for _, d := range c.devices {
		out = append(out, d)
	}
	c.devicesMu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].DeviceID < out[j].DeviceID })
	return out
}

// MaxAPDU is the largest APDU a device accepts, MinUnsegmentedAPDU when its
// I-Am has not been seen.
func (c *Client) MaxAPDU(instance uint32) int {
	d, ok := c.Device(instance)
	if !ok || d.MaxAPDU == 0 {
		return MinUnsegmentedAPDU
	}
	return min(int(d.MaxAPDU), MaxAPDUAccepted)
}

// Resolve finds the address of a device: fixed configuration first, then the
// I-Am cache, then a Who-Is limited to the instance.
func (c *Client) Resolve(ctx context.Context, instance uint32) (Address, error) {
	if udp, ok := c.options.Devices[instance]; ok {
		return Address{UDP: udp}, nil
	}
	if d, ok := c.Device(instance); ok {
		return d.Address, nil
	}

	devices, stop := c.ListenIAm(instance, instance)
	defer stop()
	if err := c.SendWhoIs(&instance, &instance, nil); err != nil {
		return Address{}, err
	}

	timer := time.NewTimer(c.options.ResolveWindow)
	defer timer.Stop()
	select {
	case d := <-devices:
		return d.Address, nil
	case <-timer.C:
		return Address{}, fmt.Errorf("device %d: %w", instance, ErrDeviceNotFound)
	case <-ctx.Done():
		return Address{}, ctx.Err()
	case <-c.done:
		return Address{}, ErrClientClosed
	}
}

// ListenIAm delivers every I-Am for an instance in [low, high] until stop is
// called. The channel is never closed.
func (c *Client) ListenIAm(low, high uint32) (<-chan DeviceInfo, func()) {
	col := &collector{low: low, high: high, ch: make(chan DeviceInfo, collectorBuffer)}

	c.mu.Lock()
	if !c.closed {
		c.collectors[col] = struct{}{}
	}
	c.mu.Unlock()

	var once sync.Once
	return col.ch, func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.collectors, col)
			c.mu.Unlock()
		})
	}
}

func (c *Client) receive() {
	defer c.wg.Done()
	buf := make([]byte, 2048)

	for {
		n, addr, err := c.conn.ReadFromUDP(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			c.log.Warn("udp read failed", slog.Any("error", err))
			continue
		}

		data := make([]byte, n)
		copy(data, buf[:n])
		c.tap(Inbound, addr, data)

		f, err := parseFrame(data, addr)
		if err != nil {
			if !errors.Is(err, errNotApplicationMessage) {
				c.log.Warn("dropping malformed frame", slog.String("from", addr.String()), slog.Any("error", err))
			}
			continue
		}
		c.dispatch(f)
	}
}

func (c *Client) dispatch(f frame) {
	switch f.apdu.pduType {
	case APDU_UNCONFIRMED_REQUEST:
		if f.apdu.service != SERVICE_UNCONFIRMED_I_AM {
			return
		}
		device, err := parseIAm(f.apdu.data, f.source)
		if err != nil {
			c.log.Warn("dropping malformed I-Am", slog.String("from", f.source.String()), slog.Any("error", err))
			return
		}
		c.learn(device)
	case APDU_SIMPLE_ACK, APDU_COMPLEX_ACK, APDU_ERROR, APDU_REJECT, APDU_ABORT:
		if !c.complete(f.source, f.apdu) {
			c.log.Debug("unmatched reply",
				slog.String("from", f.source.String()),
				slog.Int("invoke_id", int(f.apdu.invokeID)))
		}
	}
}

func (c *Client) learn(device DeviceInfo) {
	c.devicesMu.Lock()
	c.devices[device.DeviceID] = device
	c.devicesMu.Unlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	for col := range c.collectors {
		if device.DeviceID < col.low || device.DeviceID > col.high {
			continue
		}
		select {
		case col.ch <- device:
		default:
			c.log.Warn("discovery collector full, dropping I-Am", slog.Uint64("device", uint64(device.DeviceID)))
		}
	}
}

// register allocates the next free invoke id after the last one handed out.
func (c *Client) register(peer Address, service byte) (*transaction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClientClosed
	}
	for i := 1; i <= 256; i++ {
		id := c.lastID + byte(i)
		if _, used := c.pending[id]; used {
			continue
		}
		c.lastID = id
		tx := &transaction{invokeID: id, peer: peer, service: service, reply: make(chan apdu, 1)}
		c.pending[id] = tx
		return tx, nil
	}
	return nil, ErrNoInvokeID
}

func (c *Client) release(tx *transaction) {
	c.mu.Lock()
	if c.pending[tx.invokeID] == tx {
		delete(c.pending, tx.invokeID)
	}
	c.mu.Unlock()
}

// complete hands a reply to its transaction. Only the goroutine that removes
// the entry delivers, so each transaction resolves once.
func (c *Client) complete(from Address, reply apdu) bool {
	c.mu.Lock()
	tx, ok := c.pending[reply.invokeID]
	if !ok || !sameEndpoint(tx.peer.UDP, from.UDP) {
		c.mu.Unlock()
		return false
	}
	delete(c.pending, reply.invokeID)
	c.mu.Unlock()

	tx.reply <- reply
	return true
}

func sameEndpoint(a, b *net.UDPAddr) bool {
	if a == nil || b == nil {
		return false
	}
	return a.Port == b.Port && a.IP.Equal(b.IP)
}

func (c *Client) confirmedRequest(ctx context.Context, addr Address, service byte, payload []byte) (apdu, error) {
	tx, err := c.register(addr, service)
	if err != nil {
		return apdu{}, err
	}
	defer c.release(tx)

	packet := encodeFrame(BVLC_ORIGINAL_UNICAST_NPDU, addr, true, encodeConfirmedRequest(tx.invokeID, service, payload))
	if len(packet) > maxFrameSize {
		return apdu{}, &AbortError{Reason: ABORT_APDU_TOO_LONG, Local: true}
	}

	for attempt := 0; attempt <= c.options.Retries; attempt++ {
		c.log.Debug("sending confirmed request",
			slog.String("to", addr.String()),
			slog.Int("invoke_id", int(tx.invokeID)),
			slog.Int("service", int(service)),
			slog.Int("attempt", attempt+1))

		if err := c.send(packet, addr.UDP); err != nil {
			return apdu{}, err
		}

		timer := time.NewTimer(c.options.Timeout)
		select {
		case reply := <-tx.reply:
			timer.Stop()
			return c.checkReply(tx, reply)
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return apdu{}, ctx.Err()
		case <-c.done:
			timer.Stop()
			return apdu{}, ErrClientClosed
		}
	}

	select {
	case reply := <-tx.reply:
		return c.checkReply(tx, reply)
	default:
	}
	return apdu{}, fmt.Errorf("invoke id %d to %s: %w", tx.invokeID, addr, ErrTimeout)
}

func (c *Client) checkReply(tx *transaction, reply apdu) (apdu, error) {
	switch reply.pduType {
	case APDU_SIMPLE_ACK, APDU_COMPLEX_ACK:
		if reply.service != tx.service {
			return apdu{}, fmt.Errorf("%w: ack for service %d, expected %d", ErrMalformedReply, reply.service, tx.service)
		}
		if reply.segmented() {
			c.sendAbort(tx, ABORT_SEGMENTATION_NOT_SUPPORTED)
			return apdu{}, &AbortError{Reason: ABORT_SEGMENTATION_NOT_SUPPORTED, Local: true}
		}
		return reply, nil
	case APDU_ERROR:
		class, code, err := parseError(reply.data)
		if err != nil {
			return apdu{}, fmt.Errorf("%w: %w", ErrMalformedReply, err)
		}
		return apdu{}, &ErrorPDU{Service: reply.service, Class: class, Code: code}
	case APDU_REJECT:
		return apdu{}, &RejectError{Reason: reply.reason}
	case APDU_ABORT:
		return apdu{}, &AbortError{Reason: reply.reason}
	}
	return apdu{}, fmt.Errorf("%w: unexpected APDU type 0x%02x", ErrMalformedReply, reply.pduType)
}

func (c *Client) sendAbort(tx *transaction, reason byte) {
	packet := encodeFrame(BVLC_ORIGINAL_UNICAST_NPDU, tx.peer, false, []byte{APDU_ABORT, tx.invokeID, reason})
	if err := c.send(packet, tx.peer.UDP); err != nil {
		c.log.Debug("failed to send abort", slog.Any("error", err))
	}
}

// SendWhoIs broadcasts a Who-Is, or unicasts it when dest is set. Nil limits
// ask every device to answer.
func (c *Client) SendWhoIs(low, high *uint32, dest *net.UDPAddr) error {
	function, target := BVLC_ORIGINAL_BROADCAST_NPDU, c.options.BroadcastAddr
	if dest != nil {
		function, target = BVLC_ORIGINAL_UNICAST_NPDU, dest
	}
	return c.send(encodeFrame(function, Address{}, false, encodeWhoIs(low, high)), target)
}

func (c *Client) send(packet []byte, to *net.UDPAddr) error {
	select {
	case <-c.done:
		return ErrClientClosed
	default:
	}
	c.tap(Outbound, to, packet)
	if _, err := c.conn.WriteToUDP(packet, to); err != nil {
		return fmt.Errorf("%w: send to %s: %w", ErrCommunication, to, err)
	}
	return nil
}

func (c *Client) tap(dir Direction, remote *net.UDPAddr, payload []byte) {
	if c.options.Tap != nil {
		c.options.Tap(dir, c.LocalAddr(), remote, payload)
	}
}
