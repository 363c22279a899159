package signer

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/speedrun-hq/gofast-relayer/pkg/cosmos"
	"github.com/speedrun-hq/gofast-relayer/pkg/logger"
	"github.com/speedrun-hq/gofast-relayer/pkg/translate"
)

const solverAddress = "osmo1qypqxpq9qcrsszg2pvxq6rs0zqg3yyc5z5tpwxqergd3c8g7rusq4z5ese"

func newSignerServer(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/address", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(addressResponse{Address: solverAddress})
	})
	mux.HandleFunc("/v1/sign", func(w http.ResponseWriter, r *http.Request) {
		var req cosmos.SignRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if req.Sequence == 99 {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = io.WriteString(w, "hsm unavailable")
			return
		}
		payload := []byte(req.ChainID + "/" + req.Messages[0].Contract)
		_ = json.NewEncoder(w).Encode(signResponse{TxBytes: translate.BytesToBase64(payload)})
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestResolve(t *testing.T) {
	server := newSignerServer(t)
	client := New(server.URL, &logger.EmptyLogger{})

	assert.Empty(t, client.Address())

	addr, err := client.Resolve(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, solverAddress, addr)
	assert.Equal(t, solverAddress, client.Address())

	_, err = client.Resolve(context.Background(), "osmo1other")
	assert.Error(t, err)
}

func TestSign(t *testing.T) {
	server := newSignerServer(t)
	client := New(server.URL+"/", &logger.EmptyLogger{})

	msg := cosmos.MsgExecuteContract{Sender: solverAddress, Contract: "osmo1settler", Msg: json.RawMessage(`{}`)}
	txBytes, err := client.Sign(context.Background(), cosmos.SignRequest{
		ChainID:  "osmosis-1",
		Sequence: 4,
		Messages: []cosmos.MsgExecuteContract{msg},
	})
	require.NoError(t, err)
	assert.Equal(t, "osmosis-1/osmo1settler", string(txBytes))

	_, err = client.Sign(context.Background(), cosmos.SignRequest{
		ChainID:  "osmosis-1",
		Sequence: 99,
		Messages: []cosmos.MsgExecuteContract{msg},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hsm unavailable")
}
