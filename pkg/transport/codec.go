package transport

import (
	"encoding/json"
	"fmt"

	"github.com/golang/snappy"
)

// encodeFrame serializes an envelope and compresses it for the wire
func encodeFrame(from Endpoint, msg Message) ([]byte, error) {
	env := envelope{
		From:    from,
		Headers: msg.Headers(),
		Data:    msg.Data,
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	return snappy.Encode(nil, raw), nil
}

// decodeFrame decompresses and deserializes a wire frame
func decodeFrame(frame []byte) (IncomingMessage, error) {
	raw, err := snappy.Decode(nil, frame)
	if err != nil {
		return IncomingMessage{}, fmt.Errorf("decompress frame: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return IncomingMessage{}, fmt.Errorf("decode frame: %w", err)
	}

	return IncomingMessage{
		From: env.From,
		Message: Message{
			Qualifier:     env.Headers[HeaderQualifier],
			CorrelationID: env.Headers[HeaderCorrelationID],
			Data:          env.Data,
		},
	}, nil
}
