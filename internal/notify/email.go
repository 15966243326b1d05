package notify

import (
	"context"
	"fmt"
	"strings"

	"gopkg.in/gomail.v2"

	"github.com/hackgods/hospital-scheduling/internal/scheduling"
)

type mailSender interface {
	DialAndSend(m ...*gomail.Message) error
}

// EmailNotifier mails the patient about booking changes. Patients without
// an email address are skipped silently.
type EmailNotifier struct {
	sender mailSender
	from   string
}

func NewEmailNotifier(host string, port int, user, password, from string) *EmailNotifier {
	return &EmailNotifier{
		sender: gomail.NewDialer(host, port, user, password),
		from:   from,
	}
}

func (e *EmailNotifier) Notify(ctx context.Context, n scheduling.Notification) error {
	if n.PatientEmail == "" {
		return nil
	}
	subject, ok := subjects[n.Event]
	if !ok {
		return nil
	}

	m := gomail.NewMessage()
	m.SetHeader("From", e.from)
	m.SetHeader("To", n.PatientEmail)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", emailBody(n))

	// gomail has no context support; honour cancellation before dialing.
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := e.sender.DialAndSend(m); err != nil {
		return fmt.Errorf("send %s email: %w", n.Event, err)
	}
	return nil
}

var subjects = map[string]string{
	scheduling.EventAppointmentBooked:        "Your appointment is booked",
	scheduling.EventAppointmentCancelled:     "Your appointment was cancelled",
	scheduling.EventAppointmentRescheduled:   "Your appointment was moved",
	scheduling.EventAppointmentStatusChanged: "Your appointment was updated",
}

func emailBody(n scheduling.Notification) string {
	var b strings.Builder
	name := n.PatientName
	if name == "" {
		name = "patient"
	}
	fmt.Fprintf(&b, "Hello %s,\n\n", name)

	switch n.Event {
	case scheduling.EventAppointmentBooked:
		fmt.Fprintf(&b, "Your appointment on %s at %s is confirmed in our schedule.\n", n.Date, n.Time)
	case scheduling.EventAppointmentCancelled:
		fmt.Fprintf(&b, "Your appointment on %s at %s has been cancelled.\n", n.Date, n.Time)
	case scheduling.EventAppointmentRescheduled:
		fmt.Fprintf(&b, "Your appointment now takes place on %s at %s.\n", n.Date, n.Time)
	default:
		fmt.Fprintf(&b, "Your appointment on %s at %s is now %s.\n", n.Date, n.Time, strings.ReplaceAll(string(n.Status), "_", " "))
	}

	fmt.Fprintf(&b, "\nReference: %s\n", n.AppointmentID)
	return b.String()
}
