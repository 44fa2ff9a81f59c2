// Copyright (c) 2026 Fugal Labs. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package mail_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fugallabs/gatekeeper/internal/platform/config"
	"github.com/fugallabs/gatekeeper/internal/platform/mail"
)

// # Mocks

type MockSender struct {
	mock.Mock
}

func (m *MockSender) Send(ctx context.Context, message mail.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

/*
TestRateLimitedSender_Forwards verifies messages reach the wrapped sender unchanged.
*/
func TestRateLimitedSender_Forwards(t *testing.T) {
	next := new(MockSender)
	message := mail.Message{To: "ada@example.com", Subject: "hi", Text: "t", HTML: "<p>t</p>"}
	next.On("Send", mock.Anything, message).Return(nil).Once()

	sender := mail.NewRateLimitedSender(next, 10, 1)
	require.NoError(t, sender.Send(context.Background(), message))

	next.AssertExpectations(t)
}

/*
TestRateLimitedSender_PropagatesFailure verifies delivery errors are returned.
*/
func TestRateLimitedSender_PropagatesFailure(t *testing.T) {
	next := new(MockSender)
	next.On("Send", mock.Anything, mock.Anything).Return(errors.New("relay down"))

	sender := mail.NewRateLimitedSender(next, 0, 0)
	err := sender.Send(context.Background(), mail.Message{To: "ada@example.com"})
	assert.EqualError(t, err, "relay down")
}

/*
TestRateLimitedSender_HonorsDeadline verifies a caller is not blocked past its deadline.
*/
func TestRateLimitedSender_HonorsDeadline(t *testing.T) {
	next := new(MockSender)
	next.On("Send", mock.Anything, mock.Anything).Return(nil).Once()

	// One token per hour with a burst of one: the second send cannot get quota.
	sender := mail.NewRateLimitedSender(next, 1.0/3600, 1)
	require.NoError(t, sender.Send(context.Background(), mail.Message{To: "a@example.com"}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := sender.Send(ctx, mail.Message{To: "b@example.com"})
	assert.Error(t, err)
	next.AssertNumberOfCalls(t, "Send", 1)
}

/*
TestLogSender_NeverLogsBody verifies codes in the body stay out of the log.
*/
func TestLogSender_NeverLogsBody(t *testing.T) {
	var buffer bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buffer, nil))

	sender := mail.NewLogSender(logger)
	err := sender.Send(context.Background(), mail.Message{
		To:      "ada@example.com",
		Subject: "Your code",
		Text:    "Your code is 482913",
		HTML:    "<b>482913</b>",
	})
	require.NoError(t, err)

	output := buffer.String()
	assert.Contains(t, output, "mail_captured")
	assert.Contains(t, output, "a***@example.com")
	assert.NotContains(t, output, "482913")
	assert.NotContains(t, output, "ada@example.com")
}

/*
TestMaskAddress covers malformed and short inputs.
*/
func TestMaskAddress(t *testing.T) {
	assert.Equal(t, "a***@example.com", mail.MaskAddress("ada@example.com"))
	assert.Equal(t, "***", mail.MaskAddress("@example.com"))
	assert.Equal(t, "***", mail.MaskAddress("no-at-sign"))
}

/*
TestNew_SelectsProvider verifies provider selection from configuration.
*/
func TestNew_SelectsProvider(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil))

	sender, err := mail.New(config.MailConfig{Provider: config.MailProviderLog, RatePerSecond: 5, Burst: 1}, logger)
	require.NoError(t, err)
	assert.NotNil(t, sender)

	_, err = mail.New(config.MailConfig{Provider: "fax"}, logger)
	assert.Error(t, err)
}
