package services

import (
	"fmt"
	"log"
	"os"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// Notifier delivers one-time passcodes to customers.
type Notifier interface {
	SendOTP(phone, code string) error
}

// TwilioNotifier sends OTP codes over SMS via Twilio.
type TwilioNotifier struct {
	client *twilio.RestClient
	from   string
}

// NewTwilioNotifier creates a new Twilio notifier instance
func NewTwilioNotifier() (*TwilioNotifier, error) {
	accountSid := os.Getenv("TWILIO_ACCOUNT_SID")
	authToken := os.Getenv("TWILIO_AUTH_TOKEN")
	from := os.Getenv("TWILIO_SMS_FROM") // Format: "+14155238886"

	if accountSid == "" || authToken == "" || from == "" {
		return nil, fmt.Errorf("missing Twilio credentials in environment variables")
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSid,
		Password: authToken,
	})

	return &TwilioNotifier{client: client, from: from}, nil
}

// SendOTP sends the verification code to the given phone number.
func (t *TwilioNotifier) SendOTP(phone, code string) error {
	params := &twilioApi.CreateMessageParams{}
	params.SetFrom(t.from)
	params.SetTo(FormatPhoneForDisplay(phone))
	params.SetBody(fmt.Sprintf("Your Vittam verification code is %s. It expires in 5 minutes.", code))

	resp, err := t.client.Api.CreateMessage(params)
	if err != nil {
		log.Printf("❌ Failed to send OTP SMS: %v", err)
		return err
	}

	log.Printf("✅ OTP SMS sent! SID: %s", *resp.Sid)
	return nil
}
