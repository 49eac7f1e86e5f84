package notify

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
	"time"

	"eventTicketing/internal/lib/money"
	"eventTicketing/internal/models"
)

const startLayout = "Monday 2 January 2006, 15:04 MST"

// EventView is the display form of an event.
type EventView struct {
	Title    string
	Location string
	Starts   string
}

func ViewEvent(e *models.Event) EventView {
	v := EventView{Title: e.Title, Location: e.Location, Starts: "TBC"}

	if start, ok := e.Start(); ok {
		loc := time.UTC
		if e.Timezone != "" {
			if l, err := time.LoadLocation(e.Timezone); err == nil {
				loc = l
			}
		}
		v.Starts = start.In(loc).Format(startLayout)
	}

	return v
}

type Attendee struct {
	Name     string
	Email    string
	Quantity int
	External bool
}

func Attendees(regs []models.Registration) ([]Attendee, int) {
	out := make([]Attendee, 0, len(regs))
	total := 0
	for _, r := range regs {
		out = append(out, Attendee{Name: r.Name, Email: r.Email, Quantity: r.Quantity, External: r.External})
		total += r.Quantity
	}
	return out, total
}

type ConfirmationData struct {
	Event    EventView
	Name     string
	Quantity int
	Amount   string
}

type OrganiserRegistrationData struct {
	Event         EventView
	OrganiserName string
	AttendeeName  string
	AttendeeEmail string
	Quantity      int
	Amount        string
}

type ReminderData struct {
	Event EventView
	Name  string
}

type AttendeeListData struct {
	Event     EventView
	Name      string
	Attendees []Attendee
	Total     int
}

type RefundData struct {
	Event  EventView
	Name   string
	Amount string
	Full   bool
}

// Amount formats a paid amount, or returns "" for free registrations.
func Amount(minor int64, currency string) string {
	if minor <= 0 {
		return ""
	}
	return money.Format(minor, currency)
}

type Renderer struct {
	html *htmltemplate.Template
	text *texttemplate.Template
}

func NewRenderer() *Renderer {
	return &Renderer{
		html: htmltemplate.Must(htmltemplate.New("html").Parse(htmlTemplates)),
		text: texttemplate.Must(texttemplate.New("text").Parse(textTemplates)),
	}
}

func (r *Renderer) render(name, to, toName, subject string, data any) (Message, error) {
	var html, text bytes.Buffer

	if err := r.html.ExecuteTemplate(&html, name, data); err != nil {
		return Message{}, fmt.Errorf("render %s html: %w", name, err)
	}
	if err := r.text.ExecuteTemplate(&text, name, data); err != nil {
		return Message{}, fmt.Errorf("render %s text: %w", name, err)
	}

	return Message{
		To:      to,
		ToName:  toName,
		Subject: subject,
		HTML:    html.String(),
		Text:    strings.TrimSpace(text.String()) + "\n",
	}, nil
}

func (r *Renderer) Confirmation(to string, d ConfirmationData) (Message, error) {
	return r.render("confirmation", to, d.Name, "You're registered: "+d.Event.Title, d)
}

func (r *Renderer) OrganiserRegistration(to string, d OrganiserRegistrationData) (Message, error) {
	return r.render("organiser_registration", to, d.OrganiserName, "New registration: "+d.Event.Title, d)
}

func (r *Renderer) Reminder(to string, d ReminderData) (Message, error) {
	return r.render("reminder", to, d.Name, "Reminder: "+d.Event.Title+" is tomorrow", d)
}

func (r *Renderer) OrganiserSummary(to string, d AttendeeListData) (Message, error) {
	return r.render("organiser_summary", to, d.Name, fmt.Sprintf("%s: %d attending", d.Event.Title, d.Total), d)
}

func (r *Renderer) ForwardList(to string, d AttendeeListData) (Message, error) {
	return r.render("forward_list", to, "", "Attendee list: "+d.Event.Title, d)
}

func (r *Renderer) Refund(to string, d RefundData) (Message, error) {
	return r.render("refund", to, d.Name, "Refund issued: "+d.Event.Title, d)
}
