package email

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"log"
	"net/http"
	"time"
)

type EmailService struct {
	apiKey    string
	from      string
	templates *template.Template
}

type EmailData struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Html    string `json:"html"`
}

type SubscriptionStartedData struct {
	Name     string
	Status   string
	TrialEnd *time.Time
}

type SubscriptionCancelledData struct {
	Name      string
	AccessEnd time.Time
}

type TrialEndingData struct {
	Name     string
	DaysLeft int
	TrialEnd time.Time
}

var GlobalEmailService *EmailService

func InitEmailService(apiKey string) error {
	service, err := NewEmailService(apiKey)
	if err != nil {
		return err
	}
	GlobalEmailService = service
	return nil
}

func NewEmailService(apiKey string) (*EmailService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("resend API key is required")
	}

	templates, err := loadTemplates()
	if err != nil {
		return nil, fmt.Errorf("error loading email templates: %v", err)
	}

	return &EmailService{
		apiKey:    apiKey,
		from:      "NutriGuide <noreply@nutriguide.app>",
		templates: templates,
	}, nil
}

func (s *EmailService) sendTemplateEmail(to, subject, templateName string, data interface{}) error {
	var body bytes.Buffer
	if err := s.templates.ExecuteTemplate(&body, templateName, data); err != nil {
		return fmt.Errorf("template execution error: %v", err)
	}

	emailData := EmailData{
		From:    s.from,
		To:      to,
		Subject: subject,
		Html:    body.String(),
	}

	jsonData, err := json.Marshal(emailData)
	if err != nil {
		return fmt.Errorf("error marshaling email data: %v", err)
	}

	req, err := http.NewRequest("POST", "https://api.resend.com/emails", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("error creating request: %v", err)
	}

	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("error sending email: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading response body: %v", err)
	}

	if resp.StatusCode >= 400 {
		return fmt.Errorf("resend API error: status %d, body %s", resp.StatusCode, string(respBody))
	}

	log.Printf("Email sent to %s (%s)", to, subject)
	return nil
}

func (s *EmailService) SendSubscriptionStartedEmail(to, name, status string, trialEnd *time.Time) error {
	return s.sendTemplateEmail(to, "Welcome to NutriGuide", "subscription_started", SubscriptionStartedData{
		Name:     name,
		Status:   status,
		TrialEnd: trialEnd,
	})
}

func (s *EmailService) SendSubscriptionCancelledEmail(to, name string, accessEnd time.Time) error {
	return s.sendTemplateEmail(to, "Your NutriGuide subscription has been cancelled", "subscription_cancelled", SubscriptionCancelledData{
		Name:      name,
		AccessEnd: accessEnd,
	})
}

func (s *EmailService) SendTrialEndingEmail(to, name string, daysLeft int, trialEnd time.Time) error {
	return s.sendTemplateEmail(to, "Your NutriGuide trial is ending soon", "trial_ending", TrialEndingData{
		Name:     name,
		DaysLeft: daysLeft,
		TrialEnd: trialEnd,
	})
}
