package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/live-subtitle/backend/internal/translate"
)

var (
	translateTo     string
	translateCensor bool
)

var translateCmd = &cobra.Command{
	Use:   "translate <text>",
	Short: "Translate text with the configured engine",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runTranslate,
}

func runTranslate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	svc := translate.NewService(cfg.TranslateOptions(nil))
	if svc.Engine() == "" && translateTo != "none" {
		return fmt.Errorf("no translation engine configured")
	}

	out, err := svc.Translate(cmd.Context(), strings.Join(args, " "), translateTo, translateCensor)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}

func init() {
	translateCmd.Flags().StringVar(&translateTo, "to", "en", "target language code, or none")
	translateCmd.Flags().BoolVar(&translateCensor, "censor", false, "mask profanity where the engine supports it")
}
