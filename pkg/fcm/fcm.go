// Package fcm sends push notifications through Firebase Cloud Messaging.
package fcm

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go"
	"firebase.google.com/go/messaging"
	"google.golang.org/api/option"
)

// Pusher delivers one push message to one device token
type Pusher interface {
	Push(ctx context.Context, token, title, body string, data map[string]string) error
}

type firebasePusher struct {
	client *messaging.Client
}

// NewFirebasePusher authenticates with the service account JSON at credentialsFile
func NewFirebasePusher(ctx context.Context, credentialsFile string) (Pusher, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get messaging client: %w", err)
	}

	return &firebasePusher{client: client}, nil
}

func (p *firebasePusher) Push(ctx context.Context, token, title, body string, data map[string]string) error {
	message := &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
	}

	if _, err := p.client.Send(ctx, message); err != nil {
		return fmt.Errorf("failed to send push to device: %w", err)
	}
	return nil
}

// Noop drops every message. Used when push delivery is disabled.
type Noop struct{}

func (Noop) Push(context.Context, string, string, string, map[string]string) error {
	return nil
}
