package obs

import (
	"context"
	"fmt"

	"github.com/andreykaipov/goobs"
	"github.com/andreykaipov/goobs/api/requests/scenes"

	"stagehand/internal/config"
)

// goobsClient adapts the obs-websocket v5 SDK to the Client interface.
type goobsClient struct {
	client *goobs.Client
}

// NewDialer returns a Dialer that connects to the configured websocket
// address, authenticating when a password is set.
func NewDialer(cfg *config.Config) Dialer {
	address := cfg.OBS.Address
	password := cfg.OBS.Password
	return func(ctx context.Context) (Client, error) {
		opts := []goobs.Option{}
		if password != "" {
			opts = append(opts, goobs.WithPassword(password))
		}
		type dialResult struct {
			client *goobs.Client
			err    error
		}
		// goobs.New blocks until the handshake completes and takes no
		// context, so honor cancellation from the outside.
		done := make(chan dialResult, 1)
		go func() {
			client, err := goobs.New(address, opts...)
			done <- dialResult{client: client, err: err}
		}()
		select {
		case <-ctx.Done():
			go func() {
				if result := <-done; result.client != nil {
					_ = result.client.Disconnect()
				}
			}()
			return nil, ctx.Err()
		case result := <-done:
			if result.err != nil {
				return nil, fmt.Errorf("connect to encoder at %s: %w", address, result.err)
			}
			return &goobsClient{client: result.client}, nil
		}
	}
}

func (c *goobsClient) SetScene(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := c.client.Scenes.SetCurrentProgramScene(
		scenes.NewSetCurrentProgramSceneParams().WithSceneName(name),
	)
	if err != nil {
		return fmt.Errorf("set scene %q: %w", name, err)
	}
	return nil
}

func (c *goobsClient) StartStream(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := c.client.Stream.StartStream(); err != nil {
		return fmt.Errorf("start stream: %w", err)
	}
	return nil
}

func (c *goobsClient) StopStream(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := c.client.Stream.StopStream(); err != nil {
		return fmt.Errorf("stop stream: %w", err)
	}
	return nil
}

func (c *goobsClient) Version(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	resp, err := c.client.General.GetVersion()
	if err != nil {
		return "", fmt.Errorf("get encoder version: %w", err)
	}
	return resp.ObsVersion, nil
}

func (c *goobsClient) Close() error {
	return c.client.Disconnect()
}
