package twilio

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/Softvence-Omega-Dev-Ninjas/grayson-wescott-backend-sub000/internal/config"
)

type TwilioClient struct {
	SID   string
	Token string
	From  string
}

func NewTwilioClient(cfg *config.TwilioConfig) *TwilioClient {
	return &TwilioClient{
		SID:   cfg.SID,
		Token: cfg.Token,
		From:  cfg.From,
	}
}

func (t *TwilioClient) SendSMS(ctx context.Context, phone, body string) error {
	apiURL := fmt.Sprintf("https://api.twilio.com/2010-04-01/Accounts/%s/Messages.json", t.SID)

	data := url.Values{}
	data.Set("To", phone)
	data.Set("From", t.From)
	data.Set("Body", body)

	req, err := http.NewRequestWithContext(ctx, "POST", apiURL, strings.NewReader(data.Encode()))
	if err != nil {
		return err
	}
	req.SetBasicAuth(t.SID, t.Token)
	req.Header.Add("Content-Type", "application/x-www-form-urlencoded")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("twilio error: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("twilio error: status %d", resp.StatusCode)
	}
	return nil
}
