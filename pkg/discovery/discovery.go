// Package discovery locates telescopes on the local network by UDP
// broadcast.
//
// The requester broadcasts a scan_iscope datagram to port 4720 and every
// telescope that hears it answers with a JSON description of itself. The
// package is independent of the TCP command channel; its only output is
// the list of addresses that answered.
package discovery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	// DefaultPort is the UDP port telescopes listen on for scans.
	DefaultPort = 4720

	// DefaultTimeout is the listening window after the broadcast.
	DefaultTimeout = 10 * time.Second

	scanRequestID = 201
	scanMethod    = "scan_iscope"
	maxDatagram   = 64 * 1024
)

// DiscoveredDevice is one telescope that answered a scan.
type DiscoveredDevice struct {
	Address string          `json:"address"`
	Payload json.RawMessage `json:"payload"`
}

type scanRequest struct {
	ID     int    `json:"id"`
	Method string `json:"method"`
	Name   string `json:"name"`
	IP     string `json:"ip"`
}

// Discoverer broadcasts scans. It holds no sockets between calls, so one
// Discoverer may run concurrent scans, each with its own socket.
type Discoverer struct {
	resolver Resolver
	port     int
	name     string
}

// Option configures a Discoverer.
type Option func(*Discoverer)

// WithResolver replaces the interface lookup.
func WithResolver(r Resolver) Option {
	return func(d *Discoverer) { d.resolver = r }
}

// WithPort overrides the destination port.
func WithPort(port int) Option {
	return func(d *Discoverer) { d.port = port }
}

// WithName sets the requester name sent in the scan datagram.
func WithName(name string) Option {
	return func(d *Discoverer) { d.name = name }
}

// New creates a Discoverer using the host's interfaces.
func New(opts ...Option) *Discoverer {
	d := &Discoverer{
		resolver: InterfaceResolver{},
		port:     DefaultPort,
		name:     defaultName(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func defaultName() string {
	if h, err := os.Hostname(); err == nil && h != "" {
		return h
	}
	return "smarttel"
}

// Datagram builds the newline-terminated scan request.
func (d *Discoverer) Datagram(local net.IP) ([]byte, error) {
	req := scanRequest{ID: scanRequestID, Method: scanMethod, Name: d.name}
	if local != nil {
		req.IP = local.String()
	}
	b, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	return append(b, '\r', '\n'), nil
}

// Discover broadcasts one scan and collects replies until timeout elapses
// or ctx is done. Replies that are not JSON are logged and skipped. An
// empty result means nothing answered.
func (d *Discoverer) Discover(ctx context.Context, timeout time.Duration) ([]DiscoveredDevice, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	local, broadcast, err := d.resolver.Resolve()
	if err != nil || broadcast == nil {
		log.Warn().Err(err).Msg("Interface lookup failed, using limited broadcast")
		broadcast = LimitedBroadcast
	}

	datagram, err := d.Datagram(local)
	if err != nil {
		return nil, fmt.Errorf("build scan datagram: %w", err)
	}

	lc := net.ListenConfig{Control: control}
	pc, err := lc.ListenPacket(ctx, "udp4", "0.0.0.0:0")
	if err != nil {
		return nil, fmt.Errorf("open discovery socket: %w", err)
	}
	defer func() { _ = pc.Close() }()

	target := &net.UDPAddr{IP: broadcast, Port: d.port}
	if _, err := pc.WriteTo(datagram, target); err != nil {
		return nil, fmt.Errorf("send scan to %s: %w", target, err)
	}
	log.Info().Str("target", target.String()).Dur("timeout", timeout).Msg("Discovery scan sent")

	deadline := time.Now().Add(timeout)
	if err := pc.SetReadDeadline(deadline); err != nil {
		return nil, fmt.Errorf("set read deadline: %w", err)
	}
	stop := context.AfterFunc(ctx, func() { _ = pc.SetReadDeadline(time.Now()) })
	defer stop()

	devices := []DiscoveredDevice{}
	buf := make([]byte, maxDatagram)
	for {
		n, addr, err := pc.ReadFrom(buf)
		if err != nil {
			var netErr net.Error
			if !(errors.As(err, &netErr) && netErr.Timeout()) {
				log.Warn().Err(err).Msg("Discovery socket read failed")
			}
			break
		}

		from := addr.String()
		if udp, ok := addr.(*net.UDPAddr); ok {
			from = udp.IP.String()
		}

		data := bytes.TrimSpace(buf[:n])
		if !json.Valid(data) {
			log.Warn().Str("from", from).Int("len", n).Msg("Non-JSON discovery reply skipped")
			continue
		}

		log.Info().Str("address", from).Msg("Telescope answered scan")
		devices = append(devices, DiscoveredDevice{
			Address: from,
			Payload: append(json.RawMessage(nil), data...),
		})
	}

	log.Info().Int("found", len(devices)).Msg("Discovery complete")
	return devices, nil
}
