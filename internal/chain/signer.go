package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Signer signs and broadcasts an ordered list of instructions as one
// transaction, returning the transaction hash on success.
type Signer interface {
	SignAndBroadcast(ctx context.Context, msgs []Msg) (string, error)
	Address() string
}

// RemoteSigner talks to the wallet daemon's local signing endpoint. The
// daemon holds the keys; this process never sees them.
type RemoteSigner struct {
	baseURL string
	address string
	http    *http.Client
	timeout time.Duration
	log     zerolog.Logger
}

func NewRemoteSigner(baseURL, address string, broadcastTimeout time.Duration, log zerolog.Logger) *RemoteSigner {
	if broadcastTimeout <= 0 {
		broadcastTimeout = 30 * time.Second
	}
	return &RemoteSigner{
		baseURL: baseURL,
		address: address,
		http:    &http.Client{},
		timeout: broadcastTimeout,
		log:     log,
	}
}

func (s *RemoteSigner) Address() string { return s.address }

// SignAndBroadcast submits the instruction list for signing and waits for
// inclusion, bounded by the configured timeout. A deadline expiry maps to
// ErrBroadcastTimeout; the transaction may still have landed.
func (s *RemoteSigner) SignAndBroadcast(ctx context.Context, msgs []Msg) (string, error) {
	if len(msgs) == 0 {
		return "", errors.New("empty instruction batch")
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	body, err := json.Marshal(struct {
		Sender string `json:"sender"`
		Msgs   []Msg  `json:"msgs"`
	}{Sender: s.address, Msgs: msgs})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/sign_and_broadcast", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", ErrBroadcastTimeout
		}
		return "", fmt.Errorf("sign and broadcast: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("sign and broadcast: status %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}

	var out struct {
		TxHash string `json:"txhash"`
		Code   uint32 `json:"code"`
		RawLog string `json:"raw_log"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode broadcast response: %w", err)
	}

	if out.Code != 0 {
		return "", &BroadcastError{Code: out.Code, RawLog: out.RawLog}
	}
	if out.TxHash == "" {
		return "", errors.New("broadcast response missing txhash")
	}

	s.log.Info().Str("txhash", out.TxHash).Int("msgs", len(msgs)).Msg("broadcast confirmed")
	return out.TxHash, nil
}
