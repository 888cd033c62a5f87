package services

import (
	"fmt"
	"log"
	"net/smtp"
	"os"

	"github.com/Lakesideglamping/lakeside-retreat-staging-sub001/models"
)

// Notifier delivers guest-facing messages. Every call site treats delivery
// as best-effort: a failed email never fails a booking.
type Notifier interface {
	SendBookingConfirmation(b *models.Booking) error
	RelayContactMessage(name, email, message string) error
}

// NewNotifierFromEnv returns the SMTP notifier when SMTP_HOST is set and a
// log-only notifier otherwise, so development runs without a mail server.
func NewNotifierFromEnv() Notifier {
	if os.Getenv("SMTP_HOST") == "" {
		log.Println("SMTP_HOST not set, notifications will be logged only")
		return &logNotifier{}
	}
	return &smtpNotifier{
		host:     os.Getenv("SMTP_HOST"),
		port:     getenvDefault("SMTP_PORT", "587"),
		username: os.Getenv("SMTP_USERNAME"),
		password: os.Getenv("SMTP_PASSWORD"),
		from:     getenvDefault("SMTP_FROM", "bookings@lakesideretreat.example"),
		owner:    os.Getenv("OWNER_EMAIL"),
	}
}

func getenvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

type logNotifier struct{}

func (n *logNotifier) SendBookingConfirmation(b *models.Booking) error {
	log.Printf("notify: booking %s confirmed for %s (%s), %s to %s",
		b.ID, b.GuestName, b.GuestEmail, b.CheckIn.Format(dateLayout), b.CheckOut.Format(dateLayout))
	return nil
}

func (n *logNotifier) RelayContactMessage(name, email, message string) error {
	log.Printf("notify: contact message from %s <%s>: %s", name, email, message)
	return nil
}

type smtpNotifier struct {
	host, port         string
	username, password string
	from, owner        string
}

func (n *smtpNotifier) send(to, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n", n.from, to, subject, body)
	auth := smtp.PlainAuth("", n.username, n.password, n.host)
	return smtp.SendMail(n.host+":"+n.port, auth, n.from, []string{to}, []byte(msg))
}

func (n *smtpNotifier) SendBookingConfirmation(b *models.Booking) error {
	acc := models.Accommodations[b.Accommodation]
	subject := "Your Lakeside Retreat booking is confirmed"
	body := fmt.Sprintf(
		"Kia ora %s,\n\nYour stay in %s from %s to %s is confirmed.\nBooking reference: %s\nTotal paid (incl. GST): $%.2f NZD\n\nWe look forward to hosting you.\n",
		b.GuestName, acc.Name,
		b.CheckIn.Format(dateLayout), b.CheckOut.Format(dateLayout),
		b.ID, b.TotalPrice)
	return n.send(b.GuestEmail, subject, body)
}

func (n *smtpNotifier) RelayContactMessage(name, email, message string) error {
	if n.owner == "" {
		log.Printf("notify: OWNER_EMAIL not set, dropping contact message from %s", email)
		return nil
	}
	subject := "Website contact form: " + name
	body := fmt.Sprintf("From: %s <%s>\n\n%s\n", name, email, message)
	return n.send(n.owner, subject, body)
}
