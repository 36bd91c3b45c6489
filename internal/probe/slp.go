package probe

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"
)

// DefaultMinecraftPort is the port a Java Edition server listens on by default
const DefaultMinecraftPort = 25565

const (
	// Protocol version sent in the handshake; -1 asks the server to
	// answer with whatever version it runs
	slpProtocolVersion = -1

	slpStateStatus = 1

	slpPacketStatus = 0x00
	slpPacketPing   = 0x01

	// Largest status packet accepted from a server
	slpMaxPacketSize = 1 << 20
)

var (
	errVarIntTooLong = errors.New("varint is too long")
	errPacketTooLong = errors.New("packet exceeds size limit")
)

// ServerStatus is the part of a Server List Ping response the monitor uses
type ServerStatus struct {
	Version    string
	Protocol   int
	Players    int
	MaxPlayers int
	MOTD       string
}

// MinecraftProbe queries a game server with the Server List Ping protocol
type MinecraftProbe struct {
	BaseProbe
	Port int
}

// NewMinecraftProbe creates a new Server List Ping probe
func NewMinecraftProbe(name, host string, port int, timeout time.Duration) *MinecraftProbe {
	if port == 0 {
		port = DefaultMinecraftPort
	}
	return &MinecraftProbe{
		BaseProbe: BaseProbe{
			TargetName: name,
			TargetHost: host,
			Timeout:    timeout,
			Pings:      1,
		},
		Port: port,
	}
}

// Type returns "minecraft"
func (p *MinecraftProbe) Type() string {
	return TypeMinecraft
}

// Execute asks the server for its status and player count
func (p *MinecraftProbe) Execute(ctx context.Context) Result {
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	status, latency, err := queryStatus(ctx, p.TargetHost, p.Port)
	if err != nil {
		return p.NewResult(0, false, err)
	}

	result := p.NewResult(latency, true, nil)
	result.Players = status.Players
	result.MaxPlayers = status.MaxPlayers
	result.Version = status.Version
	result.MOTD = status.MOTD
	return result
}

// queryStatus runs one handshake/status/ping exchange
func queryStatus(ctx context.Context, host string, port int) (*ServerStatus, time.Duration, error) {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to connect: %w", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	reader := bufio.NewReader(conn)

	// Handshake followed by the status request
	var handshake bytes.Buffer
	writeVarInt(&handshake, slpProtocolVersion)
	writeString(&handshake, host)
	binary.Write(&handshake, binary.BigEndian, uint16(port))
	writeVarInt(&handshake, slpStateStatus)

	start := time.Now()
	if err := writePacket(conn, slpPacketStatus, handshake.Bytes()); err != nil {
		return nil, 0, fmt.Errorf("failed to send handshake: %w", err)
	}
	if err := writePacket(conn, slpPacketStatus, nil); err != nil {
		return nil, 0, fmt.Errorf("failed to send status request: %w", err)
	}

	id, payload, err := readPacket(reader)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read status response: %w", err)
	}
	if id != slpPacketStatus {
		return nil, 0, fmt.Errorf("unexpected packet id 0x%02x in status response", id)
	}
	latency := time.Since(start)

	body, err := readString(bytes.NewReader(payload))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read status json: %w", err)
	}
	status, err := parseStatus([]byte(body))
	if err != nil {
		return nil, 0, err
	}

	// Ping/pong gives a cleaner latency figure; servers that hang up here
	// are still online
	if pingLatency, err := ping(conn, reader); err == nil {
		latency = pingLatency
	}

	return status, latency, nil
}

// ping sends a ping packet and waits for the matching pong
func ping(conn net.Conn, reader *bufio.Reader) (time.Duration, error) {
	token := time.Now().UnixMilli()

	var payload bytes.Buffer
	binary.Write(&payload, binary.BigEndian, token)

	start := time.Now()
	if err := writePacket(conn, slpPacketPing, payload.Bytes()); err != nil {
		return 0, err
	}
	id, body, err := readPacket(reader)
	if err != nil {
		return 0, err
	}
	if id != slpPacketPing || len(body) != 8 || int64(binary.BigEndian.Uint64(body)) != token {
		return 0, fmt.Errorf("invalid pong")
	}
	return time.Since(start), nil
}

// statusJSON mirrors the status response document
type statusJSON struct {
	Version struct {
		Name     string `json:"name"`
		Protocol int    `json:"protocol"`
	} `json:"version"`
	Players struct {
		Max    int `json:"max"`
		Online int `json:"online"`
	} `json:"players"`
	Description json.RawMessage `json:"description"`
}

// parseStatus decodes the status JSON document
func parseStatus(data []byte) (*ServerStatus, error) {
	var doc statusJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid status json: %w", err)
	}

	players := doc.Players.Online
	if players < 0 {
		players = 0
	}

	return &ServerStatus{
		Version:    doc.Version.Name,
		Protocol:   doc.Version.Protocol,
		Players:    players,
		MaxPlayers: doc.Players.Max,
		MOTD:       stripFormatting(chatText(doc.Description)),
	}, nil
}

// chatComponent is the subset of a chat component needed to extract text
type chatComponent struct {
	Text  string            `json:"text"`
	Extra []json.RawMessage `json:"extra"`
}

// chatText flattens a description that is either a plain string or a chat component
func chatText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var c chatComponent
	if err := json.Unmarshal(raw, &c); err != nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(c.Text)
	for _, extra := range c.Extra {
		b.WriteString(chatText(extra))
	}
	return b.String()
}

// stripFormatting removes legacy section-sign colour codes and trims the MOTD
func stripFormatting(s string) string {
	var b strings.Builder
	skip := false
	for _, r := range s {
		if skip {
			skip = false
			continue
		}
		if r == '§' {
			skip = true
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}

// writePacket writes a length-prefixed packet
func writePacket(w io.Writer, id int32, payload []byte) error {
	var body bytes.Buffer
	writeVarInt(&body, id)
	body.Write(payload)

	var frame bytes.Buffer
	writeVarInt(&frame, int32(body.Len()))
	frame.Write(body.Bytes())

	_, err := w.Write(frame.Bytes())
	return err
}

// readPacket reads a length-prefixed packet and returns its id and payload
func readPacket(r io.ByteReader) (int32, []byte, error) {
	length, err := readVarInt(r)
	if err != nil {
		return 0, nil, err
	}
	if length <= 0 || length > slpMaxPacketSize {
		return 0, nil, errPacketTooLong
	}

	data := make([]byte, length)
	for i := range data {
		if data[i], err = r.ReadByte(); err != nil {
			return 0, nil, err
		}
	}

	body := bytes.NewReader(data)
	id, err := readVarInt(body)
	if err != nil {
		return 0, nil, err
	}
	payload := data[len(data)-body.Len():]
	return id, payload, nil
}

// writeVarInt writes v using the protocol's 7-bit variable-length encoding
func writeVarInt(w *bytes.Buffer, v int32) {
	u := uint32(v)
	for {
		if u&^0x7f == 0 {
			w.WriteByte(byte(u))
			return
		}
		w.WriteByte(byte(u&0x7f) | 0x80)
		u >>= 7
	}
}

// readVarInt reads a value written by writeVarInt
func readVarInt(r io.ByteReader) (int32, error) {
	var result uint32
	for i := 0; i < 5; i++ {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		result |= uint32(b&0x7f) << (7 * i)
		if b&0x80 == 0 {
			return int32(result), nil
		}
	}
	return 0, errVarIntTooLong
}

// writeString writes a VarInt length-prefixed UTF-8 string
func writeString(w *bytes.Buffer, s string) {
	writeVarInt(w, int32(len(s)))
	w.WriteString(s)
}

// readString reads a VarInt length-prefixed UTF-8 string
func readString(r *bytes.Reader) (string, error) {
	n, err := readVarInt(r)
	if err != nil {
		return "", err
	}
	if n < 0 || int(n) > r.Len() {
		return "", fmt.Errorf("string length %d out of range", n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}
