package main

import (
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"

	"digitnet/nn"
	"digitnet/protocol"
)

func TestServeAnswersRequests(t *testing.T) {
	model, err := nn.New([]int{4, 3, 2}, rand.NewSource(3))
	require.NoError(t, err)

	reqR, reqW := io.Pipe()
	respR, respW := io.Pipe()
	done := make(chan error, 1)
	go func() {
		done <- serve(model, &sync.Mutex{}, protocol.NewProtocol(reqR, respW))
		respW.Close()
	}()

	client := protocol.NewProtocol(respR, reqW)
	input := []float64{0.1, 0.2, 0.3, 0.4}

	require.NoError(t, client.SendPredict(1, input))
	resp, err := client.ReceivePrediction()
	require.NoError(t, err)
	want, err := model.Calculate(input)
	require.NoError(t, err)
	assert.Equal(t, 1, resp.ID)
	assert.Equal(t, want, resp.Probabilities)
	if want[0] >= want[1] {
		assert.Equal(t, 0, resp.Label)
	} else {
		assert.Equal(t, 1, resp.Label)
	}

	// A wrong-sized input is reported and the server keeps going.
	require.NoError(t, client.SendPredict(2, []float64{1}))
	_, err = client.ReceivePrediction()
	var remote *protocol.RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Contains(t, remote.Msg, "request 2")

	require.NoError(t, client.SendPredict(3, input))
	resp, err = client.ReceivePrediction()
	require.NoError(t, err)
	assert.Equal(t, 3, resp.ID)

	require.NoError(t, client.SendDone())
	require.NoError(t, <-done)
}
