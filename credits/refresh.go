package credits

import (
	"context"
	"time"

	"github.com/developersupreme/supreme-ai-sdk-sub000/auth"
	"github.com/developersupreme/supreme-ai-sdk-sub000/channel"
	"github.com/developersupreme/supreme-ai-sdk-sub000/token"
	"github.com/pkg/errors"
)

// refreshToken runs one refresh cycle against the backend. Cycles are
// single-flight: a tick arriving while one is in progress is dropped rather
// than racing it. On any failure the expiry signal fires and the caller
// decides what happens next; the refresh itself never forces a logout.
func (c *Client) refreshToken(ctx context.Context) error {
	if !c.refreshing.CompareAndSwap(false, true) {
		c.logger.Debug().Msg("credits: refresh already in flight, skipping")
		return nil
	}
	defer c.refreshing.Store(false)

	session, err := c.store.Load()
	if err != nil || session == nil || session.RefreshToken == "" {
		c.signalExpired()
		return errors.Wrap(auth.ErrNoRefreshToken, "[Client.refreshToken]")
	}

	result, err := c.authSvc.Refresh(ctx, session.RefreshToken)
	if err != nil {
		c.signalExpired()
		return errors.Wrap(err, "[Client.refreshToken]")
	}
	if !result.Success {
		c.signalExpired()
		return errors.Errorf("[Client.refreshToken] %s", result.Message)
	}

	// The store keeps the previous refresh token when the backend did not
	// rotate it.
	updated, err := c.store.UpdateTokens(result.Token, result.RefreshToken)
	if err != nil {
		return errors.Wrap(err, "[Client.refreshToken]")
	}

	c.mu.Lock()
	c.accessToken = updated.Token
	mode := c.mode
	c.mu.Unlock()

	if exp, ok := token.ExpiresAt(updated.Token); ok {
		c.logger.Debug().Time("expires", exp).Msg("credits: access token refreshed")
	}

	c.emitter.Emit(EventTokenRefreshed, updated.Token)
	if mode == ModeEmbedded {
		c.broadcast(&channel.TokenRefreshed{Token: updated.Token})
	}
	return nil
}

func (c *Client) signalExpired() {
	c.emitter.Emit(EventTokenExpired, nil)
	if c.cfg.OnTokenExpired != nil {
		c.cfg.OnTokenExpired()
	}
}

func (c *Client) startRefreshLoop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.refreshStop != nil {
		return
	}
	stop := make(chan struct{})
	c.refreshStop = stop
	go c.runLoop(stop, c.cfg.TokenRefreshInterval, func() {
		if err := c.refreshToken(context.Background()); err != nil {
			c.logger.Debug().Err(err).Msg("credits: periodic refresh failed")
		}
	})
}

func (c *Client) startBalanceLoop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.balanceStop != nil {
		return
	}
	stop := make(chan struct{})
	c.balanceStop = stop
	go c.runLoop(stop, c.cfg.BalanceRefreshInterval, func() {
		if _, err := c.CheckBalance(context.Background()); err != nil {
			c.logger.Debug().Err(err).Msg("credits: periodic balance refresh failed")
		}
	})
}

func (c *Client) runLoop(stop <-chan struct{}, interval time.Duration, tick func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			tick()
		case <-stop:
			return
		}
	}
}

func (c *Client) stopTimers() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.refreshStop != nil {
		close(c.refreshStop)
		c.refreshStop = nil
	}
	if c.balanceStop != nil {
		close(c.balanceStop)
		c.balanceStop = nil
	}
}
