package firebase

import (
	"context"
	"fmt"
	"log"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

const fcmBatchLimit = 500

// TokenDeactivator marks an FCM token unusable after FCM rejects it.
type TokenDeactivator func(ctx context.Context, token string) error

// Client implements notification.Messenger using Firebase Cloud Messaging
type Client struct {
	msgClient   *messaging.Client
	deactivator TokenDeactivator
}

// NewClient initializes a Firebase app from a service-account file.
// deactivator may be nil.
func NewClient(ctx context.Context, credentialsFile string, deactivator TokenDeactivator) (*Client, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}

	msgClient, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase messaging client: %w", err)
	}

	return &Client{msgClient: msgClient, deactivator: deactivator}, nil
}

// SendMulticast pushes one reminder to every token, in batches of 500.
func (c *Client) SendMulticast(ctx context.Context, tokens []string, title, body string, data map[string]string) error {
	if len(tokens) == 0 {
		return nil
	}

	var sent, failed int
	for _, batch := range chunkTokens(tokens, fcmBatchLimit) {
		resp, err := c.msgClient.SendEachForMulticast(ctx, buildMulticast(batch, title, body, data))
		if err != nil {
			return fmt.Errorf("failed to send FCM multicast: %w", err)
		}

		sent += resp.SuccessCount
		failed += resp.FailureCount
		for i, r := range resp.Responses {
			if r.Error != nil {
				c.handleFailure(ctx, batch[i], r.Error)
			}
		}
	}

	log.Printf("FCM multicast: %d sent, %d failed", sent, failed)
	return nil
}

func (c *Client) handleFailure(ctx context.Context, token string, err error) {
	if !messaging.IsUnregistered(err) && !messaging.IsInvalidArgument(err) {
		log.Printf("FCM send error: %v", err)
		return
	}
	if c.deactivator == nil {
		return
	}
	log.Printf("Deactivating rejected FCM token: %v", err)
	if err := c.deactivator(ctx, token); err != nil {
		log.Printf("Failed to deactivate FCM token: %v", err)
	}
}

// buildMulticast groups pushes of one route on the device: Android collapses
// them under the route key and iOS threads them together.
func buildMulticast(tokens []string, title, body string, data map[string]string) *messaging.MulticastMessage {
	msg := &messaging.MulticastMessage{
		Tokens:       tokens,
		Notification: &messaging.Notification{Title: title, Body: body},
		Data:         data,
		Android:      &messaging.AndroidConfig{Priority: "normal"},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{Aps: &messaging.Aps{Sound: "default"}},
		},
	}
	if route := data["route"]; route != "" {
		msg.Android.CollapseKey = route
		msg.APNS.Payload.Aps.ThreadID = route
	}
	return msg
}

func chunkTokens(tokens []string, size int) [][]string {
	var chunks [][]string
	for size < len(tokens) {
		tokens, chunks = tokens[size:], append(chunks, tokens[:size:size])
	}
	return append(chunks, tokens)
}
