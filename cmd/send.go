package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/leadsweep/internal/mailer"
)

var (
	sendTemplate  string
	sendSubject   string
	sendDryRun    bool
	sendMaxEmails int
	sendAll       bool
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send templated outreach emails to stored leads",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		if st == nil {
			return eris.New("send requires a configured store")
		}
		defer st.Close()

		sender := mailer.New(cfg.Mail, st)
		summary, err := sender.Run(ctx, mailer.Options{
			TemplatePath:  sendTemplate,
			Subject:       sendSubject,
			DryRun:        sendDryRun,
			MaxEmails:     sendMaxEmails,
			SkipContacted: !sendAll,
		})
		if err != nil {
			return eris.Wrap(err, "outreach run")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	},
}

func init() {
	sendCmd.Flags().StringVar(&sendTemplate, "template", "", "path to the email body template (required)")
	sendCmd.Flags().StringVar(&sendSubject, "subject", "", "email subject, may contain template variables (required)")
	sendCmd.Flags().BoolVar(&sendDryRun, "dry-run", false, "render emails without sending")
	sendCmd.Flags().IntVar(&sendMaxEmails, "max-emails", 0, "cap the number of emails sent (0 = no cap)")
	sendCmd.Flags().BoolVar(&sendAll, "all", false, "include rows already marked contacted")
	_ = sendCmd.MarkFlagRequired("template")
	_ = sendCmd.MarkFlagRequired("subject")
	rootCmd.AddCommand(sendCmd)
}
