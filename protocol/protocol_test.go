package protocol

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func TestProtocolPredictRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	writer := NewProtocol(nil, &buf)

	pixels := []float64{0, 0.5, 1, 0.25}
	if err := writer.SendPredict(7, pixels); err != nil {
		t.Fatalf("SendPredict failed: %v", err)
	}

	reader := NewProtocol(&buf, nil)
	payload, err := reader.ReceivePredict()
	if err != nil {
		t.Fatalf("ReceivePredict failed: %v", err)
	}

	if payload.ID != 7 {
		t.Errorf("ID = %d, want 7", payload.ID)
	}
	if len(payload.Pixels) != len(pixels) {
		t.Fatalf("Pixels = %v, want %v", payload.Pixels, pixels)
	}
	for i := range pixels {
		if payload.Pixels[i] != pixels[i] {
			t.Errorf("Pixels[%d] = %f, want %f", i, payload.Pixels[i], pixels[i])
		}
	}
}

func TestProtocolPrediction(t *testing.T) {
	var buf bytes.Buffer
	writer := NewProtocol(nil, &buf)

	probs := []float64{0.1, 0.8, 0.05}
	if err := writer.SendPrediction(42, probs, 1); err != nil {
		t.Fatalf("SendPrediction failed: %v", err)
	}

	reader := NewProtocol(&buf, nil)
	payload, err := reader.ReceivePrediction()
	if err != nil {
		t.Fatalf("ReceivePrediction failed: %v", err)
	}

	if payload.ID != 42 {
		t.Errorf("ID = %d, want 42", payload.ID)
	}
	if payload.Label != 1 {
		t.Errorf("Label = %d, want 1", payload.Label)
	}
	if len(payload.Probabilities) != 3 || payload.Probabilities[1] != 0.8 {
		t.Errorf("Probabilities = %v, want %v", payload.Probabilities, probs)
	}
}

func TestProtocolSequence(t *testing.T) {
	var buf bytes.Buffer
	writer := NewProtocol(nil, &buf)
	for id := 0; id < 3; id++ {
		if err := writer.SendPredict(id, []float64{float64(id)}); err != nil {
			t.Fatal(err)
		}
	}
	if err := writer.SendDone(); err != nil {
		t.Fatal(err)
	}

	reader := NewProtocol(&buf, nil)
	for id := 0; id < 3; id++ {
		payload, err := reader.ReceivePredict()
		if err != nil {
			t.Fatalf("request %d: %v", id, err)
		}
		if payload.ID != id {
			t.Errorf("ID = %d, want %d", payload.ID, id)
		}
	}
	if _, err := reader.ReceivePredict(); err != io.EOF {
		t.Errorf("Expected io.EOF after done, got %v", err)
	}
}

func TestProtocolDone(t *testing.T) {
	var buf bytes.Buffer
	writer := NewProtocol(nil, &buf)

	if err := writer.SendDone(); err != nil {
		t.Fatalf("SendDone failed: %v", err)
	}

	reader := NewProtocol(&buf, nil)
	_, err := reader.ReceivePrediction()
	if err != io.EOF {
		t.Errorf("Expected io.EOF after done, got %v", err)
	}
}

func TestProtocolError(t *testing.T) {
	var buf bytes.Buffer
	writer := NewProtocol(nil, &buf)

	if err := writer.SendError(io.ErrUnexpectedEOF); err != nil {
		t.Fatalf("SendError failed: %v", err)
	}
	if err := writer.SendPrediction(1, []float64{1}, 0); err != nil {
		t.Fatal(err)
	}

	reader := NewProtocol(&buf, nil)
	_, err := reader.ReceivePrediction()
	var remote *RemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("Expected *RemoteError after SendError, got %v", err)
	}
	if remote.Msg != io.ErrUnexpectedEOF.Error() {
		t.Errorf("Msg = %q, want %q", remote.Msg, io.ErrUnexpectedEOF.Error())
	}

	// The stream continues after a remote error.
	if _, err := reader.ReceivePrediction(); err != nil {
		t.Errorf("ReceivePrediction after error: %v", err)
	}
}

func TestProtocolUnexpectedType(t *testing.T) {
	var buf bytes.Buffer
	writer := NewProtocol(nil, &buf)
	if err := writer.SendPredict(1, []float64{1}); err != nil {
		t.Fatal(err)
	}

	reader := NewProtocol(&buf, nil)
	if _, err := reader.ReceivePrediction(); err == nil {
		t.Error("Expected error for a predict message read as a prediction")
	}
}

func TestMessageTypes(t *testing.T) {
	if MsgPredict != 0 {
		t.Errorf("MsgPredict = %d, want 0", MsgPredict)
	}
	if MsgPrediction != 1 {
		t.Errorf("MsgPrediction = %d, want 1", MsgPrediction)
	}
	if MsgDone != 2 {
		t.Errorf("MsgDone = %d, want 2", MsgDone)
	}
	if MsgError != 3 {
		t.Errorf("MsgError = %d, want 3", MsgError)
	}
	if MsgPrediction.String() != "prediction" {
		t.Errorf("String() = %q", MsgPrediction.String())
	}
}
