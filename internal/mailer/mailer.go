package mailer

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/smtp"
	"path/filepath"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadsweep/internal/config"
	"github.com/sells-group/leadsweep/internal/model"
	"github.com/sells-group/leadsweep/internal/store"
)

// fallbackGreeting replaces a missing owner name in rendered templates.
const fallbackGreeting = "Gentile Cliente"

// Options controls one outreach run.
type Options struct {
	TemplatePath  string
	Subject       string
	DryRun        bool
	MaxEmails     int
	SkipContacted bool
}

// Summary reports the outcome of an outreach run.
type Summary struct {
	Recipients int `json:"recipients"`
	Sent       int `json:"sent"`
	Failed     int `json:"failed"`
}

// templateContext is the data exposed to the subject and body templates.
type templateContext struct {
	Email     string
	Phone     string
	Website   string
	Keyword   string
	OwnerName string
	Location  string
	RowNumber int
}

// Sender reads recipients from the record store, renders a personalized
// message per row, and delivers it over SMTP. Sent rows are marked in the
// store so reruns skip them.
type Sender struct {
	cfg   config.MailConfig
	st    store.Store
	smtp  smtpFunc
	sleep func(time.Duration)
}

// smtpFunc matches smtp.SendMail, injectable for tests.
type smtpFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// New creates a Sender backed by the given record store.
func New(cfg config.MailConfig, st store.Store) *Sender {
	return &Sender{cfg: cfg, st: st, smtp: smtp.SendMail, sleep: time.Sleep}
}

// Run sends the templated message to every eligible recipient, pausing
// between sends. Individual delivery failures are logged and counted, not
// fatal.
func (s *Sender) Run(ctx context.Context, opts Options) (*Summary, error) {
	log := zap.L().With(zap.String("component", "mailer"))

	if !opts.DryRun && (s.cfg.Username == "" || s.cfg.Password == "") {
		return nil, eris.New("mailer: smtp credentials missing, set mail.username and mail.password")
	}

	body, err := template.ParseFiles(opts.TemplatePath)
	if err != nil {
		return nil, eris.Wrapf(err, "mailer: parse template %s", filepath.Base(opts.TemplatePath))
	}
	subject, err := texttemplate.New("subject").Parse(opts.Subject)
	if err != nil {
		return nil, eris.Wrap(err, "mailer: parse subject")
	}

	recipients, err := s.st.ListRecipients(ctx, store.RecipientFilter{
		SkipContacted: opts.SkipContacted,
		Limit:         opts.MaxEmails,
	})
	if err != nil {
		return nil, eris.Wrap(err, "mailer: list recipients")
	}
	if len(recipients) == 0 {
		log.Warn("no recipients to contact")
		return &Summary{}, nil
	}
	log.Info("recipients loaded", zap.Int("count", len(recipients)))

	summary := &Summary{Recipients: len(recipients)}
	delay := time.Duration(s.cfg.DelaySecs * float64(time.Second))

	for i, r := range recipients {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		rlog := log.With(
			zap.Int("n", i+1),
			zap.Int("of", len(recipients)),
			zap.String("to", r.Email),
		)

		msg, subj, err := s.render(body, subject, r)
		if err != nil {
			summary.Failed++
			rlog.Error("render failed", zap.Error(err))
			continue
		}

		if opts.DryRun {
			rlog.Info("dry run, not sending",
				zap.String("subject", subj),
				zap.Int("body_bytes", len(msg)),
			)
			summary.Sent++
			continue
		}

		if err := s.send(r.Email, subj, msg); err != nil {
			summary.Failed++
			rlog.Error("send failed", zap.Error(err))
		} else {
			summary.Sent++
			rlog.Info("sent")
			if err := s.st.MarkContacted(ctx, r.RowNumber); err != nil {
				rlog.Warn("could not mark row contacted", zap.Error(err))
			}
		}

		if delay > 0 && i < len(recipients)-1 {
			s.sleep(delay)
		}
	}

	log.Info("outreach complete",
		zap.Int("sent", summary.Sent),
		zap.Int("failed", summary.Failed),
	)
	return summary, nil
}

func (s *Sender) render(body *template.Template, subject *texttemplate.Template, r model.Recipient) (string, string, error) {
	data := templateContext{
		Email:     r.Email,
		Phone:     r.Phone,
		Website:   r.Website,
		Keyword:   r.Keyword,
		OwnerName: r.OwnerName,
		Location:  r.Location,
		RowNumber: r.RowNumber,
	}
	if data.OwnerName == "" {
		data.OwnerName = fallbackGreeting
	}

	var buf bytes.Buffer
	if err := body.Execute(&buf, data); err != nil {
		return "", "", eris.Wrap(err, "execute body template")
	}
	var sub bytes.Buffer
	if err := subject.Execute(&sub, data); err != nil {
		return "", "", eris.Wrap(err, "execute subject template")
	}
	return buf.String(), sub.String(), nil
}

// send delivers one message. smtp.SendMail negotiates STARTTLS when the
// server advertises it, which Gmail on port 587 does.
func (s *Sender) send(to, subject, body string) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.SMTPHost, s.cfg.SMTPPort)
	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.SMTPHost)

	contentType := "text/plain"
	if isHTML(body) {
		contentType = "text/html"
	}

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s <%s>\r\n", s.cfg.SenderName, s.cfg.Username)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	fmt.Fprintf(&msg, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&msg, "Content-Type: %s; charset=\"utf-8\"\r\n", contentType)
	fmt.Fprintf(&msg, "\r\n%s", body)

	if err := s.smtp(addr, auth, s.cfg.Username, []string{to}, msg.Bytes()); err != nil {
		return eris.Wrapf(err, "smtp send to %s", to)
	}
	return nil
}

func isHTML(body string) bool {
	lower := strings.ToLower(body)
	return strings.Contains(lower, "<html") ||
		strings.Contains(lower, "<body") ||
		strings.Contains(lower, "<p>")
}
