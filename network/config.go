// Package network implements the lockstep transport: per-peer turn
// buffers, a length-prefixed wire protocol, a handshake that exchanges
// the TypeRegistry name mapping, and turn-skip flow control.
package network

import "github.com/caarlos0/env/v11"

// Config holds the transport's configuration surface, loaded from the
// environment via caarlos0/env struct tags.
type Config struct {
	NPeers                 int      `env:"LOCKSTEP_N_PEERS,required"`
	PeerAddresses          []string `env:"LOCKSTEP_PEER_ADDRESSES" envSeparator:","`
	BatchMessageBytes      int      `env:"LOCKSTEP_BATCH_MESSAGE_BYTES" envDefault:"65536"`
	AcceptableTurnDistance uint64   `env:"LOCKSTEP_ACCEPTABLE_TURN_DISTANCE" envDefault:"2"`
	SkipTurnsPerTurnAhead  uint64   `env:"LOCKSTEP_SKIP_TURNS_PER_TURN_AHEAD" envDefault:"1"`
	BindAddress            string   `env:"LOCKSTEP_BIND_ADDRESS" envDefault:":7077"`
	ProtocolVersion        uint16   `env:"LOCKSTEP_PROTOCOL_VERSION" envDefault:"1"`
}

// LoadConfig reads a Config from the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
