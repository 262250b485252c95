// Package protocol carries classification requests and results between a
// network host and its clients as a stream of gob-encoded messages.
package protocol

import (
	"encoding/gob"
	"fmt"
	"io"
)

func init() {
	// Register types for gob encoding
	gob.Register(PredictPayload{})
	gob.Register(PredictionPayload{})
}

// MessageType defines message types for the prediction protocol
type MessageType int

const (
	MsgPredict MessageType = iota
	MsgPrediction
	MsgDone
	MsgError
)

func (t MessageType) String() string {
	switch t {
	case MsgPredict:
		return "predict"
	case MsgPrediction:
		return "prediction"
	case MsgDone:
		return "done"
	case MsgError:
		return "error"
	}
	return fmt.Sprintf("MessageType(%d)", int(t))
}

// Message represents a message in the prediction protocol
type Message struct {
	Type    MessageType
	Payload interface{}
}

// PredictPayload asks for the classification of one pixel vector.
type PredictPayload struct {
	ID     int
	Pixels []float64
}

// PredictionPayload answers a PredictPayload with the same ID.
type PredictionPayload struct {
	ID            int
	Probabilities []float64
	Label         int
}

// RemoteError is an error reported by the other side of the stream. The
// stream stays usable after it.
type RemoteError struct {
	Msg string
}

func (e *RemoteError) Error() string { return "remote error: " + e.Msg }

// Protocol handles prediction communication
type Protocol struct {
	encoder *gob.Encoder
	decoder *gob.Decoder
}

// NewProtocol creates a new protocol handler
func NewProtocol(r io.Reader, w io.Writer) *Protocol {
	p := &Protocol{}
	if w != nil {
		p.encoder = gob.NewEncoder(w)
	}
	if r != nil {
		p.decoder = gob.NewDecoder(r)
	}
	return p
}

// Send sends a message
func (p *Protocol) Send(msg *Message) error {
	return p.encoder.Encode(msg)
}

// Receive receives a message
func (p *Protocol) Receive() (*Message, error) {
	var msg Message
	if err := p.decoder.Decode(&msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// SendPredict sends a pixel vector for classification
func (p *Protocol) SendPredict(id int, pixels []float64) error {
	return p.Send(&Message{
		Type:    MsgPredict,
		Payload: PredictPayload{ID: id, Pixels: pixels},
	})
}

// SendPrediction sends the network output for a request
func (p *Protocol) SendPrediction(id int, probabilities []float64, label int) error {
	return p.Send(&Message{
		Type: MsgPrediction,
		Payload: PredictionPayload{
			ID:            id,
			Probabilities: probabilities,
			Label:         label,
		},
	})
}

// SendDone signals completion
func (p *Protocol) SendDone() error {
	return p.Send(&Message{Type: MsgDone})
}

// SendError sends an error message
func (p *Protocol) SendError(err error) error {
	return p.Send(&Message{
		Type:    MsgError,
		Payload: err.Error(),
	})
}

// receive reads the next message and maps MsgDone to io.EOF and MsgError to
// a *RemoteError.
func (p *Protocol) receive(want MessageType) (*Message, error) {
	msg, err := p.Receive()
	if err != nil {
		return nil, err
	}
	switch msg.Type {
	case MsgError:
		return nil, &RemoteError{Msg: fmt.Sprint(msg.Payload)}
	case MsgDone:
		return nil, io.EOF
	case want:
		return msg, nil
	}
	return nil, fmt.Errorf("expected %s message, got %s", want, msg.Type)
}

// ReceivePredict receives a prediction request
func (p *Protocol) ReceivePredict() (*PredictPayload, error) {
	msg, err := p.receive(MsgPredict)
	if err != nil {
		return nil, err
	}
	payload, ok := msg.Payload.(PredictPayload)
	if !ok {
		return nil, fmt.Errorf("invalid predict payload type %T", msg.Payload)
	}
	return &payload, nil
}

// ReceivePrediction receives a prediction result
func (p *Protocol) ReceivePrediction() (*PredictionPayload, error) {
	msg, err := p.receive(MsgPrediction)
	if err != nil {
		return nil, err
	}
	payload, ok := msg.Payload.(PredictionPayload)
	if !ok {
		return nil, fmt.Errorf("invalid prediction payload type %T", msg.Payload)
	}
	return &payload, nil
}
