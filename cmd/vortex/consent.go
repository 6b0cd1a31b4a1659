package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/amaumene/vortex/internal/models"
)

const termsNotice = `This tool downloads media through a conversion service.
You are responsible for only downloading content you have the right to
download, and for complying with the terms of the platforms you use.`

// ensureConsent reads the persisted acceptance flag once and prompts when
// it is missing. The flag is written once, on acceptance.
func (a *app) ensureConsent(cmd *cobra.Command) error {
	db, err := models.NewDatabase(a.cfg.DatabaseFile)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	accepted, err := db.HasAcceptedConsent()
	if err != nil {
		return fmt.Errorf("failed to read consent: %w", err)
	}
	if accepted {
		return nil
	}

	if !a.acceptTerms {
		accepted, err = promptConsent(cmd.InOrStdin(), cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		if !accepted {
			return errTermsDeclined
		}
	}

	if err := db.AcceptConsent(); err != nil {
		return fmt.Errorf("failed to record consent: %w", err)
	}
	a.logger.Info("Usage terms accepted")
	return nil
}

func promptConsent(in io.Reader, out io.Writer) (bool, error) {
	fmt.Fprintln(out, termsNotice)
	fmt.Fprint(out, "Accept these terms? [y/N] ")

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("failed to read answer: %w", err)
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}
