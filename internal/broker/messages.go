package broker

import (
	"encoding/json"
	"fmt"
)

// Host mailbox message types. Client-originated payloads are framed by
// the broker so the host can demux them; host->client relays are passed
// through verbatim and carry no broker-imposed type.
const (
	MessageTypeStartJoin    = "start_join"
	MessageTypeICECandidate = "ice_candidate"
)

// HostMessage is the envelope pushed to a host mailbox. The offer and
// candidate contents are opaque to the broker; only the envelope fields
// are its own.
type HostMessage struct {
	Type        string   `json:"type"`
	ClientName  string   `json:"client_name"`
	ClientOffer string   `json:"client_offer,omitempty"`
	Candidates  []string `json:"candidates,omitempty"`
}

func startJoinMessage(clientName, offer string) (string, error) {
	return encodeHostMessage(HostMessage{
		Type:        MessageTypeStartJoin,
		ClientName:  clientName,
		ClientOffer: offer,
	})
}

func iceCandidateMessage(clientName string, candidates []string) (string, error) {
	return encodeHostMessage(HostMessage{
		Type:       MessageTypeICECandidate,
		ClientName: clientName,
		Candidates: candidates,
	})
}

func encodeHostMessage(msg HostMessage) (string, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("encode host message: %w", err)
	}
	return string(data), nil
}
