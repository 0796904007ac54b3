package core

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/vovakirdan/streamchat/internal/tipengine"
)

// TipReply is returned when a tip went through.
type TipReply struct {
	Status string `json:"status"`
}

// sendTip validates on the loop, then runs the remote stages off it.
// The caller's in-flight flag is cleared on the loop when they finish.
func (r *Registry) sendTip(c *Client, raw json.RawMessage) Result {
	var p tipParams
	if err := decodeParams(raw, &p); err != nil {
		return Fail(ErrTipAmount)
	}
	tokens, err := strconv.Atoi(strings.TrimSpace(string(p.Token)))
	if err != nil || tokens <= 0 {
		return Fail(ErrTipAmount)
	}

	room, u, err := r.member(c)
	if err != nil {
		return Fail(ErrTipAuth)
	}
	logger := r.log.With().
		Str("room", room.ID).
		Str("broadcaster", room.BroadcasterName).
		Str("user_id", u.Profile.ID).
		Str("user_name", u.Profile.Name).
		Str("role", u.Profile.Role).
		Logger()

	if u.Profile.ID != string(p.ViewerID) {
		logger.Warn().Str("viewer_id", string(p.ViewerID)).Msg("tip sent with another viewer_id")
		return Fail(ErrTipViewer)
	}
	if u.tipInFlight {
		logger.Warn().Msg("tip already in flight")
		return Fail(ErrTipInFlight)
	}
	u.tipInFlight = true

	balance := tipengine.BalanceRequest{
		UserID:    string(p.ViewerID),
		SortOrder: string(p.SortOrder1),
		Hash:      string(p.Hash1),
	}
	debit := tipengine.TipRequest{
		Tokens:        tokens,
		ViewerID:      string(p.ViewerID),
		BroadcastID:   string(p.BroadcastID),
		BroadcasterID: string(p.BroadcasterID),
		SortOrder:     string(p.SortOrder2),
		Hash:          string(p.Hash2),
	}

	lifetime := r.lifetime
	out := make(chan Result, 1)
	go func() {
		ctx, cancel := r.tipContext(lifetime)
		defer cancel()

		available, err := r.runTip(ctx, balance, debit)

		res := Fail(ErrStopped)
		_ = r.do(lifetime, func() {
			u.tipInFlight = false
			if err != nil {
				logger.Warn().Err(err).Msg("tip failed")
				res = Fail(err)
				return
			}
			logger.Info().
				Int("available", available).
				Int("tokens", tokens).
				Int("left", available-tokens).
				Msg("tip sent")
			res = Reply(TipReply{Status: "success"})
			room.broadcast(NotificationTipsSent, TipsSent{Tokens: tokens, SenderData: u.Snapshot()}, nil)
		})
		out <- res
	}()
	return Pending(out)
}

func (r *Registry) tipContext(parent context.Context) (context.Context, context.CancelFunc) {
	if r.opts.TipTimeout > 0 {
		return context.WithTimeout(parent, r.opts.TipTimeout)
	}
	return context.WithCancel(parent)
}

// runTip performs the balance query, the balance check and the debit.
// It must not touch room state.
func (r *Registry) runTip(ctx context.Context, balance tipengine.BalanceRequest, debit tipengine.TipRequest) (int, error) {
	if r.tips == nil {
		return 0, ErrTipBalance
	}
	body, err := r.tips.FetchBalance(ctx, balance)
	if err != nil {
		return 0, ErrTipBalance
	}
	available, err := tipengine.ParseBalance(body)
	if err != nil {
		if errors.Is(err, tipengine.ErrMalformedBalance) {
			return 0, ErrTipBalanceParse
		}
		return 0, ErrTipBalance
	}
	if available < debit.Tokens {
		return available, errNotEnoughTokens(available)
	}
	if err := r.tips.SendTip(ctx, debit); err != nil {
		return available, ErrTipSend
	}
	return available, nil
}
