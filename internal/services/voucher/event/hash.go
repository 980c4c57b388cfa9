package event

import (
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// envelope fixes the field order hashed for an event.
type envelope struct {
	ID         string          `json:"id"`
	Type       Type            `json:"type"`
	Timestamp  int64           `json:"timestamp"`
	ActorID    string          `json:"actor_id"`
	EntityType string          `json:"entity_type"`
	EntityID   string          `json:"entity_id"`
	Payload    json.RawMessage `json:"payload"`
}

// EventHash computes the Keccak-256 content hash of an event. Seq and the
// storage-assigned hashes are not part of the content.
func EventHash(evt Event) (string, error) {
	payload := evt.PayloadJSON
	if len(payload) == 0 {
		payload = []byte("null")
	}
	data, err := json.Marshal(envelope{
		ID:         evt.ID,
		Type:       evt.Type,
		Timestamp:  evt.Timestamp.UTC().UnixMilli(),
		ActorID:    evt.ActorID,
		EntityType: evt.EntityType,
		EntityID:   evt.EntityID,
		Payload:    payload,
	})
	if err != nil {
		return "", fmt.Errorf("encode event envelope: %w", err)
	}
	return crypto.Keccak256Hash(data).Hex(), nil
}

// ChainHash links an event hash to the chain hash of its predecessor.
func ChainHash(hash, prevHash string) string {
	return crypto.Keccak256Hash(common.FromHex(prevHash), common.FromHex(hash)).Hex()
}
