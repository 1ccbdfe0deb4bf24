package notify

import (
	"context"
	"fmt"
	"html"

	"github.com/Spok95/florist-stock/internal/domain/materials"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

type sendFunc func(ctx context.Context, m *mail.SGMailV3) (status int, body string, err error)

// SendGrid письмо о низких остатках.
type SendGrid struct {
	from, to *mail.Email
	send     sendFunc
}

func NewSendGrid(apiKey, from, to string) (*SendGrid, error) {
	if apiKey == "" || from == "" || to == "" {
		return nil, fmt.Errorf("sendgrid: api key, from and to are required")
	}
	client := sendgrid.NewSendClient(apiKey)
	return &SendGrid{
		from: mail.NewEmail("Florist stock", from),
		to:   mail.NewEmail("", to),
		send: func(ctx context.Context, m *mail.SGMailV3) (int, string, error) {
			resp, err := client.SendWithContext(ctx, m)
			if err != nil {
				return 0, "", err
			}
			return resp.StatusCode, resp.Body, nil
		},
	}, nil
}

func (s *SendGrid) LowStock(ctx context.Context, items []materials.Material) error {
	if len(items) == 0 {
		return nil
	}
	text := lowStockText(items)
	msg := mail.NewSingleEmail(s.from, subject, s.to, text, "<pre>"+html.EscapeString(text)+"</pre>")

	status, body, err := s.send(ctx, msg)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if status >= 400 {
		return fmt.Errorf("sendgrid send failed: status=%d, body=%s", status, body)
	}
	return nil
}
