// Package capture writes the BACnet/IP datagrams a client exchanges to a pcap
// file readable by Wireshark.
package capture

import (
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	bacnet "github.com/maxzerker/bacnet-rpc"
)

const snapLen = 65535

var (
	localMAC  = net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x01}
	remoteMAC = net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x02}
)

// Writer synthesises Ethernet/IPv4/UDP frames around each datagram. It is
// safe for concurrent use.
type Writer struct {
	mu     sync.Mutex
	writer *pcapgo.Writer
	closer io.Closer
	log    *slog.Logger
	now    func() time.Time
}

// Create truncates path and writes the pcap file header.
func Create(path string, logger *slog.Logger) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create pcap file: %w", err)
	}
	w, err := NewWriter(f, logger)
	if err != nil {
		f.Close()
		return nil, err
	}
	w.closer = f
	return w, nil
}

func NewWriter(out io.Writer, logger *slog.Logger) (*Writer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	writer := pcapgo.NewWriter(out)
	if err := writer.WriteFileHeader(snapLen, layers.LinkTypeEthernet); err != nil {
		return nil, fmt.Errorf("write pcap header: %w", err)
	}
	return &Writer{
		writer: writer,
		log:    logger.With(slog.String("component", "capture")),
		now:    time.Now,
	}, nil
}

// Tap records one datagram; it has the bacnet.TapFunc signature.
func (w *Writer) Tap(dir bacnet.Direction, local, remote *net.UDPAddr, payload []byte) {
	src, dst := local, remote
	srcMAC, dstMAC := localMAC, remoteMAC
	if dir == bacnet.Inbound {
		src, dst = remote, local
		srcMAC, dstMAC = remoteMAC, localMAC
	}

	ip := &layers.IPv4{
		Version:  4,
		TTL:      64,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    ipv4(src),
		DstIP:    ipv4(dst),
	}
	udp := &layers.UDP{
		SrcPort: layers.UDPPort(port(src)),
		DstPort: layers.UDPPort(port(dst)),
	}
	_ = udp.SetNetworkLayerForChecksum(ip)

	buffer := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	eth := &layers.Ethernet{SrcMAC: srcMAC, DstMAC: dstMAC, EthernetType: layers.EthernetTypeIPv4}
	if err := gopacket.SerializeLayers(buffer, opts, eth, ip, udp, gopacket.Payload(payload)); err != nil {
		w.log.Warn("failed to serialize datagram", slog.Any("error", err))
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	data := buffer.Bytes()
	ci := gopacket.CaptureInfo{Timestamp: w.now(), CaptureLength: len(data), Length: len(data)}
	if err := w.writer.WritePacket(ci, data); err != nil {
		w.log.Warn("failed to write packet", slog.Any("error", err))
	}
}

func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closer == nil {
		return nil
	}
	err := w.closer.Close()
	w.closer = nil
	return err
}

func ipv4(addr *net.UDPAddr) net.IP {
	if addr != nil {
		if ip := addr.IP.To4(); ip != nil {
			return ip
		}
	}
	return net.IPv4zero.To4()
}

func port(addr *net.UDPAddr) uint16 {
	if addr == nil {
		return 0
	}
	return uint16(addr.Port)
}
