package identity

import (
	"context"
	"log/slog"
	"sync"

	"github.com/layarapp/layar-server/internal/remote"
)

// Client is one browser client's auth instance. It starts unrestored:
// listeners hear nothing until Restore (or a sign-in) resolves the initial
// state. Notifications run one at a time on a dedicated goroutine, in the
// order the changes happened.
type Client struct {
	provider *Provider
	logger   *slog.Logger

	mu        sync.Mutex
	current   *remote.Account
	restored  bool
	listeners map[int]func(*remote.Account)
	nextID    int
	queue     []func()
	closed    bool

	wake chan struct{}
	done chan struct{}
	wg   sync.WaitGroup
}

var _ remote.Auth = (*Client)(nil)

// NewClient creates an auth instance and starts its notification loop.
func NewClient(provider *Provider, logger *slog.Logger) *Client {
	c := &Client{
		provider:  provider,
		logger:    logger,
		listeners: make(map[int]func(*remote.Account)),
		wake:      make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
	c.wg.Add(1)
	go c.run()
	return c
}

// Restore resolves the initial auth state from a persisted uid. An empty or
// unknown uid restores as signed out. Only the first call has effect.
func (c *Client) Restore(ctx context.Context, uid string) {
	var acct *remote.Account
	if uid != "" {
		a, err := c.provider.Account(ctx, uid)
		if err != nil {
			c.logger.Warn("could not restore account", "uid", uid, "error", err)
		} else {
			acct = a
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.restored {
		return
	}
	c.current = acct
	c.restored = true
	c.enqueueAllLocked(acct)
}

// SubscribeAuthState implements remote.Auth.
func (c *Client) SubscribeAuthState(cb func(*remote.Account)) remote.Unsubscribe {
	c.mu.Lock()
	defer c.mu.Unlock()

	lid := c.nextID
	c.nextID++
	c.listeners[lid] = cb

	if c.restored {
		c.enqueueLocked(lid, c.current)
	}

	return remote.Once(func() {
		c.mu.Lock()
		delete(c.listeners, lid)
		c.mu.Unlock()
	})
}

// Current implements remote.Auth.
func (c *Client) Current() *remote.Account {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// SignIn implements remote.Auth.
func (c *Client) SignIn(ctx context.Context, email, password string) (*remote.Account, error) {
	acct, err := c.provider.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}
	c.set(acct)
	return acct, nil
}

// SignInFederated implements remote.Auth.
func (c *Client) SignInFederated(ctx context.Context, code string) (*remote.Account, error) {
	acct, err := c.provider.SignInFederated(ctx, code)
	if err != nil {
		return nil, err
	}
	c.set(acct)
	return acct, nil
}

// SignUp implements remote.Auth. The new account is signed in.
func (c *Client) SignUp(ctx context.Context, email, password string) (*remote.Account, error) {
	acct, err := c.provider.SignUp(ctx, email, password)
	if err != nil {
		return nil, err
	}
	c.set(acct)
	return acct, nil
}

// Adopt signs in an account that was authenticated directly against the
// provider, for flows that must finish server-side writes first.
func (c *Client) Adopt(acct *remote.Account) {
	c.set(acct)
}

// SignOut implements remote.Auth.
func (c *Client) SignOut(context.Context) error {
	c.set(nil)
	return nil
}

// Close stops the notification loop. Pending notifications are dropped.
func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.queue = nil
	c.mu.Unlock()

	close(c.done)
	c.wg.Wait()
}

// set changes the signed-in account. Listeners are notified only when the
// uid actually changes, or when this is the first resolved state.
func (c *Client) set(acct *remote.Account) {
	c.mu.Lock()
	defer c.mu.Unlock()

	wasRestored := c.restored
	prev := c.current
	c.current = acct
	c.restored = true

	if wasRestored && uidOf(prev) == uidOf(acct) {
		return
	}
	c.enqueueAllLocked(acct)
}

func uidOf(a *remote.Account) string {
	if a == nil {
		return ""
	}
	return a.UID
}

func (c *Client) enqueueAllLocked(acct *remote.Account) {
	for lid := range c.listeners {
		c.enqueueLocked(lid, acct)
	}
}

func (c *Client) enqueueLocked(lid int, acct *remote.Account) {
	if c.closed {
		return
	}
	c.queue = append(c.queue, func() {
		c.mu.Lock()
		cb, ok := c.listeners[lid]
		c.mu.Unlock()
		if ok {
			cb(acct)
		}
	})
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *Client) run() {
	defer c.wg.Done()
	for {
		select {
		case <-c.done:
			return
		case <-c.wake:
		}

		for {
			c.mu.Lock()
			if len(c.queue) == 0 || c.closed {
				c.mu.Unlock()
				break
			}
			next := c.queue[0]
			c.queue = c.queue[1:]
			c.mu.Unlock()

			next()
		}
	}
}
