package credits

import (
	"context"
	"sync"
	"time"

	"github.com/developersupreme/supreme-ai-sdk-sub000/channel"
	"github.com/developersupreme/supreme-ai-sdk-sub000/users"
	"github.com/pkg/errors"
)

// parentRoundTrip sends a request to the parent and waits for the first
// message of the response type, bounded by the configured request timeout.
// Resolution is at-most-once: the response subscription is removed as soon
// as the round-trip settles, so a duplicate or late response goes nowhere.
func (c *Client) parentRoundTrip(ctx context.Context, req channel.Payload, respType channel.Type) (channel.Message, error) {
	if c.currentMode() != ModeEmbedded || c.ch == nil {
		return channel.Message{}, errors.Wrap(ErrNotEmbedded, "[parentRoundTrip]")
	}

	reply := make(chan channel.Message, 1)
	var once sync.Once
	sub := c.ch.Subscribe(respType, func(m channel.Message) {
		once.Do(func() { reply <- m })
	})
	defer c.ch.Unsubscribe(sub)

	if err := c.ch.SendToParent(req); err != nil {
		return channel.Message{}, errors.Wrapf(err, "[parentRoundTrip] send %s", req.MessageType())
	}

	timer := time.NewTimer(c.cfg.RequestTimeout)
	defer timer.Stop()

	select {
	case msg := <-reply:
		return msg, nil
	case <-timer.C:
		return channel.Message{}, errors.Wrapf(ErrParentTimeout, "[parentRoundTrip] waiting for %s", respType)
	case <-ctx.Done():
		return channel.Message{}, errors.Wrapf(ctx.Err(), "[parentRoundTrip] waiting for %s", respType)
	}
}

// RequestUserState asks the hosting parent for its current user state.
// Embedded mode only.
func (c *Client) RequestUserState(ctx context.Context) (*users.User, error) {
	msg, err := c.parentRoundTrip(ctx, &channel.RequestUserState{Origin: c.ch.Origin()}, channel.TypeUserStateResponse)
	if err != nil {
		return nil, errors.Wrap(err, "[Client.RequestUserState]")
	}
	resp, ok := msg.Payload.(*channel.UserStateResponse)
	if !ok {
		return nil, errors.New("[Client.RequestUserState] unexpected payload")
	}
	if resp.Error != "" {
		return nil, errors.Errorf("[Client.RequestUserState] %s", resp.Error)
	}
	return resp.UserState, nil
}
