package gateway

import "encoding/json"

const (
	OpDispatch     = 0
	OpHeartbeat    = 1
	OpIdentify     = 2
	OpHello        = 10
	OpHeartbeatAck = 11
)

// Close codes sent to clients that fail the handshake.
const (
	CloseDecodeError          = 4002
	CloseNotAuthenticated     = 4003
	CloseAuthenticationFailed = 4004
)

const EventReady = "READY"

type outboundFrame struct {
	Op   int    `json:"op"`
	Type string `json:"t,omitempty"`
	Seq  int64  `json:"s,omitempty"`
	Data any    `json:"d"`
}

type inboundFrame struct {
	Op   int             `json:"op"`
	Data json.RawMessage `json:"d"`
}

type helloData struct {
	HeartbeatInterval int64 `json:"heartbeat_interval"`
}

type identifyData struct {
	Token      string `json:"token"`
	Properties struct {
		ClientBuild string `json:"client_build"`
	} `json:"properties"`
}
