package registry

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/jpcontreras/vendia-backend/pkg/enums"
)

type decoderFunc func(payload json.RawMessage) (any, error)

// DecoderRegistry maps event type plus payload version to a decoder, so
// consumers can unmarshal mixed-version streams.
type DecoderRegistry struct {
	mtx      sync.RWMutex
	decoders map[string]decoderFunc
}

func NewDecoderRegistry() *DecoderRegistry {
	return &DecoderRegistry{decoders: make(map[string]decoderFunc)}
}

func decoderKey(eventType enums.OutboxEventType, version int) string {
	return fmt.Sprintf("%s@v%d", eventType, version)
}

func (r *DecoderRegistry) Register(eventType enums.OutboxEventType, version int, decoder decoderFunc) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.decoders[decoderKey(eventType, version)] = decoder
}

func (r *DecoderRegistry) Decode(eventType enums.OutboxEventType, version int, payload json.RawMessage) (any, error) {
	r.mtx.RLock()
	decoder, ok := r.decoders[decoderKey(eventType, version)]
	r.mtx.RUnlock()
	if !ok {
		return nil, fmt.Errorf("decoder not registered for %s", decoderKey(eventType, version))
	}
	return decoder(payload)
}
