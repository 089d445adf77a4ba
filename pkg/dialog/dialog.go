package dialog

import (
	"os"

	"github.com/pkg/errors"
	"github.com/pterm/pterm"

	"github.com/distroless-tools/copylibs/pkg/log"
)

// Confirm asks the user a y/N question and returns their answer.
func Confirm(message string, defaultValue bool) (bool, error) {
	var confirmText, rejectText string
	if defaultValue {
		confirmText = "Y"
		rejectText = "n"
	} else {
		confirmText = "y"
		rejectText = "N"
	}
	res, err := pterm.InteractiveConfirmPrinter{
		DefaultValue: defaultValue,
		DefaultText:  message,
		TextStyle:    &pterm.ThemeDefault.PrimaryStyle,
		ConfirmText:  confirmText,
		ConfirmStyle: &pterm.ThemeDefault.PrimaryStyle,
		RejectText:   rejectText,
		RejectStyle:  &pterm.ThemeDefault.PrimaryStyle,
		SuffixStyle:  &pterm.ThemeDefault.SecondaryStyle,
		OnInterruptFunc: func() {
			// Print an empty line to avoid the cursor being on the same line
			// as the confirmation prompt
			log.Print()
			// Exit with code 130 (128 + 2) to match the behavior of the
			// default interrupt signal handler
			os.Exit(130)
		},
	}.Show()
	return res, errors.WithStack(err)
}
