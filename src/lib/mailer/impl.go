package mailer

import (
	"cws/src/config"
	"cws/src/lib"
	"cws/src/prometheus"
	"log"
)

// Dispatch sends a notification email without blocking the caller. Delivery
// failures are logged and swallowed; they must never fail the operation that
// triggered them.
func Dispatch(to string, subject string, htmlBody string) {
	cfg := config.Get()
	input := &lib.SendMailInput{
		From:     cfg.MailFrom,
		FromName: cfg.MailFromName,
		To:       []string{to},
		Subject:  subject,
		Body:     htmlBody,
		Html:     true,
	}
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("[mailer] panic while sending %q to %s: %v\n", subject, to, r)
			}
		}()
		if err := lib.SendMail(input); err != nil {
			log.Printf("[mailer] error sending %q to %s: %s\n", subject, to, err.Error())
			if prometheus.EmailFailuresCounter != nil {
				prometheus.EmailFailuresCounter.Inc()
			}
		}
	}()
}
