package notify

const htmlTemplates = `
{{define "event"}}<p><strong>{{.Title}}</strong><br>{{.Starts}}{{if .Location}}<br>{{.Location}}{{end}}</p>{{end}}

{{define "confirmation"}}<p>Hi {{.Name}},</p>
<p>You're registered for:</p>
{{template "event" .Event}}
<p>Tickets: {{.Quantity}}{{if .Amount}}<br>Paid: {{.Amount}}{{end}}</p>{{end}}

{{define "organiser_registration"}}<p>Hi {{.OrganiserName}},</p>
<p>{{.AttendeeName}} ({{.AttendeeEmail}}) registered for:</p>
{{template "event" .Event}}
<p>Tickets: {{.Quantity}}{{if .Amount}}<br>Paid: {{.Amount}}{{end}}</p>{{end}}

{{define "reminder"}}<p>Hi {{.Name}},</p>
<p>A reminder that this event starts soon:</p>
{{template "event" .Event}}{{end}}

{{define "attendees"}}<table>
<tr><th>Name</th><th>Email</th><th>Tickets</th></tr>
{{range .}}<tr><td>{{.Name}}</td><td>{{.Email}}</td><td>{{.Quantity}}</td></tr>
{{end}}</table>{{end}}

{{define "organiser_summary"}}<p>Hi {{.Name}},</p>
<p>{{.Total}} tickets are registered for:</p>
{{template "event" .Event}}
{{template "attendees" .Attendees}}{{end}}

{{define "forward_list"}}<p>Attendee list for:</p>
{{template "event" .Event}}
<p>Total tickets: {{.Total}}</p>
{{template "attendees" .Attendees}}{{end}}

{{define "refund"}}<p>Hi {{.Name}},</p>
<p>We've refunded {{.Amount}} for:</p>
{{template "event" .Event}}
{{if .Full}}<p>Your registration has been cancelled.</p>{{end}}{{end}}
`

const textTemplates = `
{{define "event"}}{{.Title}}
{{.Starts}}{{if .Location}}
{{.Location}}{{end}}{{end}}

{{define "confirmation"}}Hi {{.Name}},

You're registered for:

{{template "event" .Event}}

Tickets: {{.Quantity}}{{if .Amount}}
Paid: {{.Amount}}{{end}}{{end}}

{{define "organiser_registration"}}Hi {{.OrganiserName}},

{{.AttendeeName}} ({{.AttendeeEmail}}) registered for:

{{template "event" .Event}}

Tickets: {{.Quantity}}{{if .Amount}}
Paid: {{.Amount}}{{end}}{{end}}

{{define "reminder"}}Hi {{.Name}},

A reminder that this event starts soon:

{{template "event" .Event}}{{end}}

{{define "attendees"}}{{range .}}- {{.Name}} <{{.Email}}> x{{.Quantity}}
{{end}}{{end}}

{{define "organiser_summary"}}Hi {{.Name}},

{{.Total}} tickets are registered for:

{{template "event" .Event}}

{{template "attendees" .Attendees}}{{end}}

{{define "forward_list"}}Attendee list for:

{{template "event" .Event}}

Total tickets: {{.Total}}

{{template "attendees" .Attendees}}{{end}}

{{define "refund"}}Hi {{.Name}},

We've refunded {{.Amount}} for:

{{template "event" .Event}}{{if .Full}}

Your registration has been cancelled.{{end}}{{end}}
`
