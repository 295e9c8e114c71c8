package node

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	nerrors "peerkeep/internal/errors"
	"peerkeep/internal/peer"
)

// DefaultProtocol is advertised when the caller supplies no hint.
const DefaultProtocol = "peerkeep/1"

// Handshake is the first message each side sends on a new link, one
// JSON object per line.
type Handshake struct {
	NetworkID  string `json:"network_id"`
	Role       string `json:"role"`
	ListenPort int    `json:"listen_port"`
	Protocol   string `json:"protocol"`
	Version    string `json:"version"`
}

func writeHandshake(w io.Writer, h Handshake) error {
	return json.NewEncoder(w).Encode(h)
}

// readHandshake decodes the remote handshake line and checks it against the
// local network id.
func readHandshake(br *bufio.Reader, networkID string) (Handshake, peer.NodeRole, error) {
	var h Handshake
	line, err := br.ReadSlice('\n')
	if err != nil {
		if err == bufio.ErrBufferFull {
			return h, 0, fmt.Errorf("%w: handshake too long", nerrors.ErrHandshake)
		}
		return h, 0, err
	}
	if err := json.Unmarshal(line, &h); err != nil {
		return h, 0, fmt.Errorf("%w: %v", nerrors.ErrHandshake, err)
	}
	if h.NetworkID != networkID {
		return h, 0, fmt.Errorf("%w: network id %q, want %q", nerrors.ErrHandshake, h.NetworkID, networkID)
	}
	role, err := peer.ParseNodeRole(h.Role)
	if err != nil {
		return h, 0, fmt.Errorf("%w: %v", nerrors.ErrHandshake, err)
	}
	if h.ListenPort < 0 || h.ListenPort > 65535 {
		return h, 0, fmt.Errorf("%w: listen port %d", nerrors.ErrHandshake, h.ListenPort)
	}
	return h, role, nil
}
