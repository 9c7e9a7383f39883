// Copyright (c) 2026 Das ELB Hotel & Restaurant
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package mail talks to the hotel's mailbox provider over its Graph-style
// REST API: fetching recent messages for the pipeline and sending approved
// replies. Authentication uses the OAuth2 client-credentials flow.
package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2/clientcredentials"

	"github.com/daselb/concierge/internal/config"
	"github.com/daselb/concierge/internal/models"
)

// Client reads from and sends through a single hotel mailbox.
type Client struct {
	baseURL    string
	mailbox    string
	httpClient *http.Client
}

// NewClient creates a mailbox client. The returned client refreshes its
// access token transparently via the client-credentials flow.
func NewClient(ctx context.Context, cfg config.MailConfig) *Client {
	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
		Scopes:       cfg.Scopes,
	}
	httpClient := cc.Client(ctx)
	httpClient.Timeout = 30 * time.Second

	return &Client{
		baseURL:    cfg.BaseURL,
		mailbox:    cfg.Mailbox,
		httpClient: httpClient,
	}
}

// graphMessage mirrors the provider's message shape, narrowed to the fields
// the pipeline consumes.
type graphMessage struct {
	ID               string `json:"id"`
	ConversationID   string `json:"conversationId"`
	Subject          string `json:"subject"`
	ReceivedDateTime string `json:"receivedDateTime"`
	From             struct {
		EmailAddress struct {
			Name    string `json:"name"`
			Address string `json:"address"`
		} `json:"emailAddress"`
	} `json:"from"`
	Body struct {
		ContentType string `json:"contentType"`
		Content     string `json:"content"`
	} `json:"body"`
}

type messagesPage struct {
	Value    []graphMessage `json:"value"`
	NextLink string         `json:"@odata.nextLink"`
}

// FetchNew retrieves messages received within the last sinceDays days, up to
// maxResults, oldest first so pipeline ordering matches arrival order.
func (c *Client) FetchNew(ctx context.Context, sinceDays, maxResults int) ([]models.IncomingEmail, error) {
	since := time.Now().UTC().AddDate(0, 0, -sinceDays).Format(time.RFC3339)

	params := url.Values{}
	params.Set("$filter", fmt.Sprintf("receivedDateTime ge %s", since))
	params.Set("$orderby", "receivedDateTime asc")
	params.Set("$top", fmt.Sprintf("%d", maxResults))
	params.Set("$select", "id,conversationId,subject,receivedDateTime,from,body")

	endpoint := fmt.Sprintf("%s/users/%s/messages?%s", c.baseURL, url.PathEscape(c.mailbox), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Prefer", "outlook.body-content-type=\"html\"")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch messages: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("mail API returned HTTP %d", resp.StatusCode)
	}

	var page messagesPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}

	emails := make([]models.IncomingEmail, 0, len(page.Value))
	for _, m := range page.Value {
		email := models.IncomingEmail{
			MessageID: m.ID,
			ThreadID:  m.ConversationID,
			FromEmail: m.From.EmailAddress.Address,
			FromName:  m.From.EmailAddress.Name,
			Subject:   m.Subject,
			Body:      m.Body.Content,
		}
		if ts, err := time.Parse(time.RFC3339, m.ReceivedDateTime); err == nil {
			email.ReceivedAt = &ts
		}
		emails = append(emails, email)
	}
	return emails, nil
}

// sendMail payload types, matching the provider's schema.
type sendMailRequest struct {
	Message         outgoingMessage `json:"message"`
	SaveToSentItems bool            `json:"saveToSentItems"`
}

type outgoingMessage struct {
	Subject      string       `json:"subject"`
	Body         messageBody  `json:"body"`
	ToRecipients []recipient  `json:"toRecipients"`
	Headers      []mailHeader `json:"internetMessageHeaders,omitempty"`
}

type messageBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

type recipient struct {
	EmailAddress struct {
		Address string `json:"address"`
	} `json:"emailAddress"`
}

type mailHeader struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Send delivers a plain-text reply from the hotel mailbox. inReplyTo, when
// set, is carried as a threading header so mail clients group the reply with
// the guest's original message.
func (c *Client) Send(ctx context.Context, to, subject, body, inReplyTo string) error {
	var rcpt recipient
	rcpt.EmailAddress.Address = to

	payload := sendMailRequest{
		Message: outgoingMessage{
			Subject:      subject,
			Body:         messageBody{ContentType: "Text", Content: body},
			ToRecipients: []recipient{rcpt},
		},
		SaveToSentItems: true,
	}
	if inReplyTo != "" {
		payload.Message.Headers = []mailHeader{
			{Name: "x-concierge-in-reply-to", Value: inReplyTo},
		}
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal send request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/users/%s/sendMail", c.baseURL, url.PathEscape(c.mailbox))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("mail API returned HTTP %d on send", resp.StatusCode)
	}
	return nil
}
